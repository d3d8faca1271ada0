package session

import (
	"encoding/json"
	"time"

	"github.com/riskpilot/riskpilot/internal/schema"
)

// wireMessage is the persisted JSON representation of a message. Tool calls
// use the OpenAI wire shape so exported sessions can be replayed elsewhere.
type wireMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []map[string]any `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
	Timestamp  string           `json:"timestamp,omitempty"`
}

// messageToWire converts a typed Message to its persisted representation.
func messageToWire(msg schema.Message) wireMessage {
	w := wireMessage{
		Role:       msg.Role,
		Content:    msg.Content,
		ToolCallID: msg.ToolCallID,
		Name:       msg.ToolName,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for _, tc := range msg.ToolCalls {
		w.ToolCalls = append(w.ToolCalls, tc.ToWireMap())
	}
	return w
}

// wireToMessage converts a decoded wire map back to a typed Message.
func wireToMessage(data map[string]any) schema.Message {
	role, _ := data["role"].(string)
	content, _ := data["content"].(string)
	msg := schema.Message{Role: role, Content: content}

	// Restore tool calls stored as []any of wire-format maps.
	if tcs, ok := data["tool_calls"].([]any); ok {
		for _, tc := range tcs {
			tcm, ok := tc.(map[string]any)
			if !ok {
				continue
			}
			fn, _ := tcm["function"].(map[string]any)
			id, _ := tcm["id"].(string)
			name, _ := fn["name"].(string)
			argsStr, _ := fn["arguments"].(string)
			var args map[string]any
			_ = json.Unmarshal([]byte(argsStr), &args)
			msg.ToolCalls = append(msg.ToolCalls, schema.ToolCall{
				ID:        id,
				Name:      name,
				Arguments: args,
			})
		}
	}

	if id, ok := data["tool_call_id"].(string); ok {
		msg.ToolCallID = id
	}
	if name, ok := data["name"].(string); ok {
		msg.ToolName = name
	}
	return msg
}

// encodeHistory marshals a history as a JSON array of wire messages.
func encodeHistory(h schema.History) ([]byte, error) {
	wire := make([]wireMessage, 0, h.Len())
	for _, m := range h.Messages() {
		wire = append(wire, messageToWire(m))
	}
	return json.Marshal(wire)
}

func decodeHistory(data []byte) (schema.History, error) {
	if len(data) == 0 {
		return schema.History{}, nil
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return schema.History{}, err
	}
	msgs := make([]schema.Message, 0, len(raw))
	for _, r := range raw {
		msgs = append(msgs, wireToMessage(r))
	}
	return schema.NewHistory(msgs...), nil
}

func encodeMetadata(meta map[string]any) []byte {
	if meta == nil {
		meta = map[string]any{}
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return []byte("{}")
	}
	return data
}

func decodeMetadata(data []byte) map[string]any {
	meta := map[string]any{}
	_ = json.Unmarshal(data, &meta)
	return meta
}

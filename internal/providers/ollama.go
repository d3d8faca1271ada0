package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"

	"github.com/riskpilot/riskpilot/internal/schema"
	"github.com/riskpilot/riskpilot/internal/shared/llmutils"
)

// OllamaProvider talks to a local Ollama daemon through its native API.
type OllamaProvider struct {
	client       *ollama.Client
	defaultModel string
	route        route
}

func NewOllamaProvider(apiBase, defaultModel string, extraHeaders map[string]string) (*OllamaProvider, error) {
	r := route{gateway: FindByName("ollama")}
	base, err := url.Parse(r.apiBase(apiBase, "http://localhost:11434"))
	if err != nil {
		return nil, fmt.Errorf("parse ollama base url: %w", err)
	}
	return &OllamaProvider{
		client:       ollama.NewClient(base, newHTTPClient(300*time.Second, extraHeaders)),
		defaultModel: defaultModel,
		route:        r,
	}, nil
}

func (p *OllamaProvider) DefaultModel() string { return p.defaultModel }

// Chat implements schema.LLMProvider. Ollama has no tool_choice knob, so a
// request that forbids tool calls simply omits the tool list.
func (p *OllamaProvider) Chat(
	ctx context.Context,
	messages schema.History,
	tools []schema.ToolDefinition,
	opts schema.ChatOptions,
) (schema.LLMResponse, error) {
	msgs, err := toOllamaMessages(messages)
	if err != nil {
		return schema.LLMResponse{}, err
	}

	stream := false
	req := &ollama.ChatRequest{
		Model:    p.route.resolveModel(llmutils.StringOrDefault(opts.Model, p.defaultModel)),
		Messages: msgs,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": opts.Temperature,
		},
	}
	if opts.MaxTokens > 0 {
		req.Options["num_predict"] = opts.MaxTokens
	}
	if len(tools) > 0 && toolChoice(opts.ToolChoice) != schema.ToolChoiceNone {
		if req.Tools, err = toOllamaTools(tools); err != nil {
			return schema.LLMResponse{}, err
		}
	}

	var (
		content   strings.Builder
		toolCalls []schema.ToolCall
		final     ollama.ChatResponse
	)
	err = p.client.Chat(ctx, req, func(resp ollama.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		for _, tc := range resp.Message.ToolCalls {
			toolCalls = append(toolCalls, schema.ToolCall{
				ID:        callID(""),
				Name:      tc.Function.Name,
				Arguments: parseArguments(tc.Function.Name, toJSON(tc.Function.Arguments)),
			})
		}
		if resp.Done {
			final = resp
		}
		return nil
	})
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("ollama chat: %w", err)
	}

	return schema.LLMResponse{
		Content:      llmutils.StripThink(content.String()),
		ToolCalls:    toolCalls,
		FinishReason: llmutils.StringOrDefault(final.DoneReason, "stop"),
		Usage: map[string]int{
			"input_tokens":  final.PromptEvalCount,
			"output_tokens": final.EvalCount,
		},
	}, nil
}

// ollamaWireMessage mirrors the daemon's message JSON. Converting through it
// keeps this package independent of the Go types the api package uses for
// tool arguments, which have changed between releases.
type ollamaWireMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolName  string           `json:"tool_name,omitempty"`
	ToolCalls []ollamaWireCall `json:"tool_calls,omitempty"`
}

type ollamaWireCall struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

func toOllamaMessages(h schema.History) ([]ollama.Message, error) {
	wire := make([]ollamaWireMessage, 0, h.Len())
	for _, m := range h.Messages() {
		w := ollamaWireMessage{Role: m.Role, Content: m.Content}
		if m.Role == schema.RoleTool {
			w.ToolName = m.ToolName
		}
		for _, tc := range m.ToolCalls {
			var c ollamaWireCall
			c.Function.Name = tc.Name
			c.Function.Arguments = tc.Arguments
			if c.Function.Arguments == nil {
				c.Function.Arguments = map[string]any{}
			}
			w.ToolCalls = append(w.ToolCalls, c)
		}
		wire = append(wire, w)
	}

	var out []ollama.Message
	if err := roundTrip(wire, &out); err != nil {
		return nil, fmt.Errorf("encode ollama messages: %w", err)
	}
	return out, nil
}

func toOllamaTools(defs []schema.ToolDefinition) (ollama.Tools, error) {
	wire := make([]map[string]any, 0, len(defs))
	for _, d := range defs {
		wire = append(wire, d.WireMap())
	}
	var out ollama.Tools
	if err := roundTrip(wire, &out); err != nil {
		return nil, fmt.Errorf("encode ollama tools: %w", err)
	}
	return out, nil
}

func roundTrip(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

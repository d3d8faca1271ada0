package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/riskpilot/riskpilot/internal/schema"
)

type capturedRequest struct {
	Model      string           `json:"model"`
	ToolChoice any              `json:"tool_choice"`
	Tools      []map[string]any `json:"tools"`
	Messages   []map[string]any `json:"messages"`
}

func newChatServer(t *testing.T, reply string, got *capturedRequest, header *http.Header) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if header != nil {
			*header = r.Header.Clone()
		}
		if err := json.NewDecoder(r.Body).Decode(got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testTool() schema.ToolDefinition {
	return schema.ToolDefinition{
		Name:        "Get_Diabetes_Score",
		Description: "Diabetes risk",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"age": map[string]any{"type": "number"}},
			"required":   []string{"age"},
		},
	}
}

func TestOpenAIChat_ToolCalls(t *testing.T) {
	const reply = `{
		"id": "x", "object": "chat.completion", "model": "llama-3.1-8b-instant",
		"choices": [{"index": 0, "finish_reason": "tool_calls", "message": {
			"role": "assistant", "content": "",
			"tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "Get_Diabetes_Score", "arguments": "{\"age\": 45}"}},
				{"id": "", "type": "function", "function": {"name": "Get_Diabetes_Score", "arguments": "{\"age\": 50"}}
			]}}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
	}`
	var got capturedRequest
	var hdr http.Header
	srv := newChatServer(t, reply, &got, &hdr)

	p := NewOpenAIProvider("gsk_test", srv.URL, "groq/llama-3.1-8b-instant", "groq", map[string]string{"X-Trace": "t1"})
	h := schema.NewHistory(schema.NewUserMessage("risk for a 45 year old?"))
	resp, err := p.Chat(context.Background(), h, []schema.ToolDefinition{testTool()}, schema.NewChatOptions("", 256, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Model != "llama-3.1-8b-instant" {
		t.Errorf("expected stripped model name, got %q", got.Model)
	}
	if got.ToolChoice != "auto" {
		t.Errorf("expected tool_choice auto, got %v", got.ToolChoice)
	}
	if len(got.Tools) != 1 {
		t.Fatalf("expected 1 tool in request, got %d", len(got.Tools))
	}
	if hdr.Get("X-Trace") != "t1" {
		t.Errorf("expected extra header to be sent, got %q", hdr.Get("X-Trace"))
	}

	if len(resp.ToolCalls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(resp.ToolCalls))
	}
	if resp.ToolCalls[0].ID != "call_1" || resp.ToolCalls[0].Arguments["age"] != float64(45) {
		t.Errorf("unexpected first call: %+v", resp.ToolCalls[0])
	}
	if resp.ToolCalls[1].ID == "" {
		t.Error("expected a synthesized id for the second call")
	}
	if resp.ToolCalls[1].Arguments["age"] != float64(50) {
		t.Errorf("expected repaired arguments, got %v", resp.ToolCalls[1].Arguments)
	}
	if resp.Usage["input_tokens"] != 12 || resp.Usage["output_tokens"] != 3 {
		t.Errorf("unexpected usage: %v", resp.Usage)
	}
}

func TestOpenAIChat_ToolChoiceNone(t *testing.T) {
	const reply = `{"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "<think>hmm</think>Your risk is low."}}]}`
	var got capturedRequest
	srv := newChatServer(t, reply, &got, nil)

	p := NewOpenAIProvider("k", srv.URL, "gpt-4o-mini", "openai", nil)
	h := schema.NewHistory(
		schema.NewSystemMessage("be brief"),
		schema.NewUserMessage("hi"),
		schema.NewAssistantMessage("", []schema.ToolCall{{ID: "c1", Name: "Get_Diabetes_Score", Arguments: map[string]any{"age": 45}}}),
		schema.NewToolResultMessage("c1", "Get_Diabetes_Score", `{"risk_score": 0.2}`),
	)
	opts := schema.NewChatOptions("", 256, 0).WithoutTools()
	resp, err := p.Chat(context.Background(), h, []schema.ToolDefinition{testTool()}, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.ToolChoice != "none" {
		t.Errorf("expected tool_choice none, got %v", got.ToolChoice)
	}
	if len(got.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(got.Messages))
	}
	if got.Messages[3]["tool_call_id"] != "c1" {
		t.Errorf("expected tool_call_id on tool message, got %v", got.Messages[3])
	}
	if resp.Content != "Your risk is low." {
		t.Errorf("expected think block stripped, got %q", resp.Content)
	}
	if resp.HasToolCalls() {
		t.Error("expected no tool calls")
	}
}

func TestOpenAIChat_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit"}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("k", srv.URL, "gpt-4o-mini", "openai", nil)
	_, err := p.Chat(context.Background(), schema.NewHistory(schema.NewUserMessage("hi")), nil, schema.NewChatOptions("", 0, 0))
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("expected rate limit in error, got %v", err)
	}
}

func TestOpenAITemperature(t *testing.T) {
	if openAITemperature(0) <= 0 {
		t.Error("expected zero temperature to map to a positive value")
	}
	if openAITemperature(0.7) != float32(0.7) {
		t.Errorf("expected 0.7, got %v", openAITemperature(0.7))
	}
}

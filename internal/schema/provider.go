package schema

import "context"

// ToolChoice controls whether the model may request tool calls.
type ToolChoice string

const (
	ToolChoiceAuto ToolChoice = "auto"
	// ToolChoiceNone forbids tool calls. Definitions may still be sent so the
	// backend can interpret tool traffic already present in the history.
	ToolChoiceNone ToolChoice = "none"
)

// ChatOptions configures a single LLM chat request.
type ChatOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
	ToolChoice  ToolChoice
}

func NewChatOptions(model string, maxTokens int, temperature float64) ChatOptions {
	return ChatOptions{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		ToolChoice:  ToolChoiceAuto,
	}
}

// WithoutTools returns a copy of o that forbids tool calls.
func (o ChatOptions) WithoutTools() ChatOptions {
	o.ToolChoice = ToolChoiceNone
	return o
}

// WithModel returns a copy of o using model when it is non-empty.
func (o ChatOptions) WithModel(model string) ChatOptions {
	if model != "" {
		o.Model = model
	}
	return o
}

// LLMResponse is the normalised response from any LLM provider.
type LLMResponse struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        map[string]int // "input_tokens", "output_tokens"
}

// HasToolCalls reports whether the response contains at least one tool call.
func (r LLMResponse) HasToolCalls() bool { return len(r.ToolCalls) > 0 }

// LLMProvider is the interface every LLM backend must satisfy.
type LLMProvider interface {
	Chat(ctx context.Context, messages History, tools []ToolDefinition, opts ChatOptions) (LLMResponse, error)
	DefaultModel() string
}

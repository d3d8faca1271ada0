package workflow

import (
	"context"
	"sync"

	"github.com/riskpilot/riskpilot/internal/schema"
)

type chatCall struct {
	messages schema.History
	tools    []schema.ToolDefinition
	opts     schema.ChatOptions
}

type fakeProvider struct {
	mu        sync.Mutex
	responses []schema.LLMResponse
	errs      []error
	calls     []chatCall
}

func (p *fakeProvider) Chat(_ context.Context, h schema.History, tools []schema.ToolDefinition, opts schema.ChatOptions) (schema.LLMResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := len(p.calls)
	p.calls = append(p.calls, chatCall{messages: h, tools: tools, opts: opts})
	if i < len(p.errs) && p.errs[i] != nil {
		return schema.LLMResponse{}, p.errs[i]
	}
	if i >= len(p.responses) {
		return schema.LLMResponse{Content: "report"}, nil
	}
	return p.responses[i], nil
}

func (p *fakeProvider) DefaultModel() string { return "fake/model" }

type invocation struct {
	name string
	args map[string]any
}

type fakeInvoker struct {
	results map[string]schema.ToolResult
	calls   []invocation
	closed  bool
}

func (f *fakeInvoker) Invoke(_ context.Context, name string, args map[string]any) schema.ToolResult {
	f.calls = append(f.calls, invocation{name: name, args: args})
	if r, ok := f.results[name]; ok {
		return r
	}
	return schema.ErrorResultf("unknown tool %q", name)
}

func (f *fakeInvoker) Close() error {
	f.closed = true
	return nil
}

func extract(intent string, args map[string]any) schema.LLMResponse {
	return schema.LLMResponse{ToolCalls: []schema.ToolCall{{ID: "call_1", Name: intent, Arguments: args}}}
}

// diabetesArgs returns all eight diabetes fields as a model would send them.
func diabetesArgs() map[string]any {
	return map[string]any{
		"age":                 45.0,
		"gender":              "Male",
		"hypertension":        1.0,
		"heart_disease":       0.0,
		"smoking_history":     "former",
		"bmi":                 28.5,
		"HbA1c_level":         6.2,
		"blood_glucose_level": 140.0,
	}
}

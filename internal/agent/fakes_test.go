package agent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/riskpilot/riskpilot/internal/schema"
)

type chatCall struct {
	messages schema.History
	tools    []schema.ToolDefinition
	opts     schema.ChatOptions
}

// fakeProvider replays scripted responses and records every request.
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
		return schema.LLMResponse{Content: "done"}, nil
	}
	return p.responses[i], nil
}

func (p *fakeProvider) DefaultModel() string { return "fake/model" }

type invocation struct {
	name string
	args map[string]any
}

// fakeGateway serves a fixed tool list and canned results.
type fakeGateway struct {
	tools   []schema.ToolDescriptor
	listErr error
	results map[string]schema.ToolResult
	calls   []invocation
	closed  bool
}

func (g *fakeGateway) ListTools(context.Context) ([]schema.ToolDescriptor, error) {
	return g.tools, g.listErr
}

func (g *fakeGateway) Invoke(_ context.Context, name string, args map[string]any) schema.ToolResult {
	g.calls = append(g.calls, invocation{name: name, args: args})
	if r, ok := g.results[name]; ok {
		return r
	}
	return schema.ErrorResultf("unknown tool %q", name)
}

func (g *fakeGateway) Close() error {
	g.closed = true
	return nil
}

func diabetesTool() schema.ToolDescriptor {
	return schema.ToolDescriptor{
		Name:        "Get Diabetes Score",
		Description: "Diabetes risk score",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"age":{"type":"number"},"bmi":{"type":"number"}},"required":["age"]}`),
		Server:      "medical",
	}
}

var errBackend = errors.New("backend unavailable")

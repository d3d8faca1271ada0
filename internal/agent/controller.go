// Package agent runs conversation turns: the tool-calling controller used in
// chat mode and the Service that serialises turns per session.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/riskpilot/riskpilot/internal/schema"
	"github.com/riskpilot/riskpilot/internal/shared/llmutils"
	"github.com/riskpilot/riskpilot/internal/toolspec"
)

const emptyReply = "I've completed processing but have no response to give."

// Gateway is the part of the tool registry the controller depends on.
type Gateway interface {
	ListTools(ctx context.Context) ([]schema.ToolDescriptor, error)
	Invoke(ctx context.Context, name string, args map[string]any) schema.ToolResult
}

// Controller drives one user turn: a tool-enabled model pass, the tool calls
// it requested in emission order, and a tool-free pass for the final reply.
type Controller struct {
	provider schema.LLMProvider
	gateway  Gateway
	settings schema.AgentSettings
	prompt   *PromptBuilder

	mu       sync.Mutex
	descs    []schema.ToolDescriptor
	bindings *toolspec.Bindings
	defs     []schema.ToolDefinition
}

var _ schema.Engine = (*Controller)(nil)

func NewController(provider schema.LLMProvider, gateway Gateway, settings schema.AgentSettings, prompt *PromptBuilder) *Controller {
	if prompt == nil {
		prompt = NewPromptBuilder("")
	}
	return &Controller{
		provider: provider,
		gateway:  gateway,
		settings: settings,
		prompt:   prompt,
		bindings: toolspec.NewBindings(),
	}
}

// Tools returns the tool definitions bound for this turn. The registry's
// list is read on every call and the definitions are rebuilt only when it
// changed. A registry failure is logged and the turn proceeds without tools.
func (c *Controller) Tools(ctx context.Context) []schema.ToolDefinition {
	descs, err := c.gateway.ListTools(ctx)
	if err != nil {
		slog.Warn("Tool registry unavailable, continuing without tools", "err", err)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.defs != nil && sameDescriptors(c.descs, descs) {
		return c.defs
	}

	defs := make([]schema.ToolDefinition, 0, len(descs))
	for _, d := range descs {
		spec := toolspec.FromDescriptor(d)
		if spec.IsFallback() {
			slog.Debug("Tool schema unusable, binding free-form payload", "tool", d.Name)
		}
		defs = append(defs, spec.Definition(c.bindings.Bind(d.Name)))
	}
	c.descs, c.defs = descs, defs
	slog.Info("Tools bound", "count", len(defs))
	return defs
}

func sameDescriptors(a, b []schema.ToolDescriptor) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name ||
			a[i].Server != b[i].Server ||
			a[i].Description != b[i].Description ||
			!bytes.Equal(a[i].InputSchema, b[i].InputSchema) {
			return false
		}
	}
	return true
}

// Process implements schema.Engine.
func (c *Controller) Process(ctx context.Context, history schema.History, text string) (schema.TurnResult, error) {
	defs := c.Tools(ctx)
	system := schema.NewSystemMessage(c.prompt.Build(defs))
	opts := c.settings.ChatOptions()

	h := history.Append(schema.NewUserMessage(text))

	resp, err := c.provider.Chat(ctx, h.Prepend(system), defs, opts)
	if err != nil {
		return schema.TurnResult{}, fmt.Errorf("model pass 1: %w", err)
	}
	slog.Debug("Model pass", "pass", 1, "tool_calls", len(resp.ToolCalls))

	if !resp.HasToolCalls() {
		reply := llmutils.StringOrDefault(resp.Content, emptyReply)
		h = h.Append(schema.NewAssistantMessage(reply, nil))
		return schema.TurnResult{Reply: reply, History: h}, nil
	}

	calls := make([]schema.ToolCall, len(resp.ToolCalls))
	for i, tc := range resp.ToolCalls {
		if tc.ID == "" {
			tc.ID = newCallID()
		}
		calls[i] = tc
	}
	h = h.Append(schema.NewAssistantMessage(resp.Content, calls))
	slog.Info("Calling tools", "hint", llmutils.ToolHint(calls))
	for _, tc := range calls {
		h = h.Append(c.invoke(ctx, tc))
	}

	final, err := c.provider.Chat(ctx, h.Prepend(system), defs, opts.WithoutTools())
	if err != nil {
		return schema.TurnResult{}, fmt.Errorf("model pass 2: %w", err)
	}
	if final.HasToolCalls() {
		slog.Warn("Ignoring tool calls requested in the final pass", "count", len(final.ToolCalls))
	}

	reply := llmutils.StringOrDefault(final.Content, emptyReply)
	h = h.Append(schema.NewAssistantMessage(reply, nil))
	return schema.TurnResult{Reply: reply, History: h}, nil
}

// invoke runs one tool call and returns its result message. Failures become
// text the model can read on the next pass.
func (c *Controller) invoke(ctx context.Context, tc schema.ToolCall) schema.Message {
	c.mu.Lock()
	remote, ok := c.bindings.Remote(tc.Name)
	c.mu.Unlock()
	if !ok {
		remote = tc.Name
	}

	argsJSON, _ := json.Marshal(tc.Arguments)
	slog.Info("Tool call", "name", remote, "args", llmutils.Truncate(string(argsJSON), 200))

	res := c.gateway.Invoke(ctx, remote, tc.Arguments)
	content := res.String()
	if res.IsError() {
		slog.Warn("Tool failed", "name", remote, "err", res.Err())
		content = fmt.Sprintf("Tool '%s' failed: %s", remote, res.Err())
	}
	return schema.NewToolResultMessage(tc.ID, tc.Name, content)
}

// Close releases the tool registry connection when the controller owns it.
func (c *Controller) Close() error {
	if cl, ok := c.gateway.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

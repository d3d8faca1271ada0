package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/riskpilot/riskpilot/internal/schema"
	"github.com/riskpilot/riskpilot/internal/shared/llmutils"
)

// AnthropicProvider talks to the Anthropic Messages API.
type AnthropicProvider struct {
	client       *anthropic.Client
	defaultModel string
	route        route
}

func NewAnthropicProvider(apiKey, apiBase, defaultModel string, extraHeaders map[string]string) *AnthropicProvider {
	opts := []anthropicopt.RequestOption{anthropicopt.WithAPIKey(apiKey)}
	if apiBase != "" {
		opts = append(opts, anthropicopt.WithBaseURL(apiBase))
	}
	for k, v := range extraHeaders {
		opts = append(opts, anthropicopt.WithHeader(k, v))
	}
	cl := anthropic.NewClient(opts...)
	return &AnthropicProvider{
		client:       &cl,
		defaultModel: defaultModel,
		route:        route{spec: FindByName("anthropic")},
	}
}

func (p *AnthropicProvider) DefaultModel() string { return p.defaultModel }

// Chat implements schema.LLMProvider. Tool definitions are sent even when
// tool calls are forbidden, since the API rejects tool_use history blocks
// without them; ToolChoice none keeps the model from calling.
func (p *AnthropicProvider) Chat(
	ctx context.Context,
	messages schema.History,
	tools []schema.ToolDefinition,
	opts schema.ChatOptions,
) (schema.LLMResponse, error) {
	model := llmutils.StringOrDefault(opts.Model, p.defaultModel)
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	system, converted := toAnthropicMessages(messages)
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.route.resolveModel(model)),
		MaxTokens:   int64(maxTokens),
		Messages:    converted,
		Temperature: anthropic.Float(opts.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = toAnthropicTools(tools)
		if toolChoice(opts.ToolChoice) == schema.ToolChoiceNone {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
		} else {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
		}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("anthropic messages: %w", err)
	}

	var (
		text      strings.Builder
		toolCalls []schema.ToolCall
	)
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		case anthropic.ToolUseBlock:
			toolCalls = append(toolCalls, schema.ToolCall{
				ID:        callID(b.ID),
				Name:      b.Name,
				Arguments: parseArguments(b.Name, string(b.Input)),
			})
		}
	}

	return schema.LLMResponse{
		Content:      llmutils.StripThink(text.String()),
		ToolCalls:    toolCalls,
		FinishReason: llmutils.StringOrDefault(string(msg.StopReason), "stop"),
		Usage: map[string]int{
			"input_tokens":  int(msg.Usage.InputTokens),
			"output_tokens": int(msg.Usage.OutputTokens),
		},
	}, nil
}

// toAnthropicMessages splits out the system prompt and converts the rest.
// Consecutive messages with the same role are merged into one, which also
// groups the results of several tool calls into a single user turn.
func toAnthropicMessages(h schema.History) (string, []anthropic.MessageParam) {
	var (
		system []string
		out    []anthropic.MessageParam
	)
	push := func(role anthropic.MessageParamRole, blocks ...anthropic.ContentBlockParamUnion) {
		if len(blocks) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			return
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}

	for _, m := range h.Messages() {
		switch m.Role {
		case schema.RoleSystem:
			system = append(system, m.Content)
		case schema.RoleUser:
			push(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(m.Content))
		case schema.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				args := tc.Arguments
				if args == nil {
					args = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, args, tc.Name))
			}
			push(anthropic.MessageParamRoleAssistant, blocks...)
		case schema.RoleTool:
			push(anthropic.MessageParamRoleUser, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false))
		}
	}
	return strings.Join(system, "\n\n"), out
}

func toAnthropicTools(defs []schema.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: d.Properties(),
				Required:   d.Required(),
			},
		}})
	}
	return out
}

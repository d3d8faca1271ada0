package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/riskpilot/riskpilot/internal/schema"
	"github.com/riskpilot/riskpilot/internal/shared/llmutils"
)

// OpenAIProvider talks to any OpenAI-compatible chat-completions endpoint.
type OpenAIProvider struct {
	client       *openai.Client
	defaultModel string
	route        route
}

// NewOpenAIProvider constructs a provider from raw config values.
// The caller extracts these from config.Config to avoid an import cycle.
func NewOpenAIProvider(
	apiKey, apiBase, defaultModel, providerName string,
	extraHeaders map[string]string,
) *OpenAIProvider {
	r := newRoute(providerName, apiKey, apiBase, defaultModel)

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = r.apiBase(apiBase, "https://api.openai.com/v1")
	cfg.HTTPClient = newHTTPClient(120*time.Second, extraHeaders)

	return &OpenAIProvider{
		client:       openai.NewClientWithConfig(cfg),
		defaultModel: defaultModel,
		route:        r,
	}
}

func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }

// Chat implements schema.LLMProvider.
func (p *OpenAIProvider) Chat(
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

	req := openai.ChatCompletionRequest{
		Model:       p.route.resolveModel(model),
		Messages:    toOpenAIMessages(messages),
		MaxTokens:   maxTokens,
		Temperature: openAITemperature(opts.Temperature),
	}
	if len(tools) > 0 {
		req.Tools = toOpenAITools(tools)
		req.ToolChoice = string(toolChoice(opts.ToolChoice))
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return schema.LLMResponse{}, fmt.Errorf("chat completion: rate limit exceeded: %w", err)
		}
		return schema.LLMResponse{}, fmt.Errorf("chat completion: %w", err)
	}
	return fromOpenAIResponse(resp)
}

// openAITemperature maps a temperature to the request field. go-openai drops
// a zero temperature from the request body, which lets the server apply its
// own default; the smallest positive float keeps sampling greedy instead.
func openAITemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

func toolChoice(c schema.ToolChoice) schema.ToolChoice {
	if c == "" {
		return schema.ToolChoiceAuto
	}
	return c
}

func toOpenAIMessages(h schema.History) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, h.Len())
	for _, m := range h.Messages() {
		msg := openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
		switch m.Role {
		case schema.RoleAssistant:
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: toJSON(tc.Arguments),
					},
				})
			}
		case schema.RoleTool:
			msg.ToolCallID = m.ToolCallID
		}
		out = append(out, msg)
	}
	return out
}

func toOpenAITools(defs []schema.ToolDefinition) []openai.Tool {
	out := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return out
}

func fromOpenAIResponse(resp openai.ChatCompletionResponse) (schema.LLMResponse, error) {
	if len(resp.Choices) == 0 {
		return schema.LLMResponse{}, fmt.Errorf("empty choices in response")
	}
	choice := resp.Choices[0]

	var toolCalls []schema.ToolCall
	for _, tc := range choice.Message.ToolCalls {
		toolCalls = append(toolCalls, schema.ToolCall{
			ID:        callID(tc.ID),
			Name:      tc.Function.Name,
			Arguments: parseArguments(tc.Function.Name, tc.Function.Arguments),
		})
	}

	finish := string(choice.FinishReason)
	if finish == "" {
		finish = "stop"
	}

	return schema.LLMResponse{
		Content:      llmutils.StripThink(choice.Message.Content),
		ToolCalls:    toolCalls,
		FinishReason: finish,
		Usage: map[string]int{
			"input_tokens":  resp.Usage.PromptTokens,
			"output_tokens": resp.Usage.CompletionTokens,
		},
	}, nil
}

// headerTransport adds fixed headers to every request.
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

func newHTTPClient(timeout time.Duration, headers map[string]string) *http.Client {
	c := &http.Client{Timeout: timeout}
	if len(headers) > 0 {
		c.Transport = headerTransport{headers: headers, base: http.DefaultTransport}
	}
	return c
}

package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/riskpilot/riskpilot/internal/schema"
	"github.com/riskpilot/riskpilot/internal/shared/llmutils"
)

// GeminiProvider talks to the Gemini API through generative-ai-go.
type GeminiProvider struct {
	apiKey       string
	defaultModel string
	route        route

	mu     sync.Mutex
	client *genai.Client
}

func NewGeminiProvider(apiKey, defaultModel string) *GeminiProvider {
	return &GeminiProvider{
		apiKey:       apiKey,
		defaultModel: defaultModel,
		route:        route{spec: FindByName("gemini")},
	}
}

func (p *GeminiProvider) DefaultModel() string { return p.defaultModel }

// genaiClient creates the SDK client on first use; construction needs a
// context, which the provider constructor does not have.
func (p *GeminiProvider) genaiClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	p.client = c
	return c, nil
}

// Close releases the SDK client.
func (p *GeminiProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

// Chat implements schema.LLMProvider.
func (p *GeminiProvider) Chat(
	ctx context.Context,
	messages schema.History,
	tools []schema.ToolDefinition,
	opts schema.ChatOptions,
) (schema.LLMResponse, error) {
	client, err := p.genaiClient(ctx)
	if err != nil {
		return schema.LLMResponse{}, err
	}

	model := client.GenerativeModel(p.route.resolveModel(llmutils.StringOrDefault(opts.Model, p.defaultModel)))
	model.SetTemperature(float32(opts.Temperature))
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	model.SetMaxOutputTokens(int32(maxTokens))

	system, history, last := toGeminiContents(messages)
	if last == nil {
		return schema.LLMResponse{}, fmt.Errorf("gemini chat: history does not end with a user turn")
	}
	if system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, d := range tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  toGeminiSchema(d.Parameters),
			})
		}
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
		mode := genai.FunctionCallingAuto
		if toolChoice(opts.ToolChoice) == schema.ToolChoiceNone {
			mode = genai.FunctionCallingNone
		}
		model.ToolConfig = &genai.ToolConfig{FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: mode}}
	}

	cs := model.StartChat()
	cs.History = history
	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("gemini chat: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return schema.LLMResponse{}, fmt.Errorf("gemini chat: empty candidates in response")
	}

	cand := resp.Candidates[0]
	var (
		text      strings.Builder
		toolCalls []schema.ToolCall
	)
	for _, part := range cand.Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			text.WriteString(string(v))
		case genai.FunctionCall:
			args := v.Args
			if args == nil {
				args = map[string]any{}
			}
			toolCalls = append(toolCalls, schema.ToolCall{ID: callID(""), Name: v.Name, Arguments: args})
		}
	}

	usage := map[string]int{}
	if resp.UsageMetadata != nil {
		usage["input_tokens"] = int(resp.UsageMetadata.PromptTokenCount)
		usage["output_tokens"] = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return schema.LLMResponse{
		Content:      llmutils.StripThink(text.String()),
		ToolCalls:    toolCalls,
		FinishReason: strings.ToLower(cand.FinishReason.String()),
		Usage:        usage,
	}, nil
}

// toGeminiContents converts the history into chat contents. The final user
// turn is returned separately because SendMessage takes it as parts.
func toGeminiContents(h schema.History) (system string, history []*genai.Content, last *genai.Content) {
	var sys []string
	var out []*genai.Content
	push := func(role string, parts ...genai.Part) {
		if len(parts) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, parts...)
			return
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}

	for _, m := range h.Messages() {
		switch m.Role {
		case schema.RoleSystem:
			sys = append(sys, m.Content)
		case schema.RoleUser:
			push("user", genai.Text(m.Content))
		case schema.RoleAssistant:
			var parts []genai.Part
			if m.Content != "" {
				parts = append(parts, genai.Text(m.Content))
			}
			for _, tc := range m.ToolCalls {
				parts = append(parts, genai.FunctionCall{Name: tc.Name, Args: tc.Arguments})
			}
			push("model", parts...)
		case schema.RoleTool:
			push("user", genai.FunctionResponse{
				Name:     m.ToolName,
				Response: map[string]any{"result": m.Content},
			})
		}
	}

	system = strings.Join(sys, "\n\n")
	if n := len(out); n > 0 && out[n-1].Role == "user" {
		return system, out[:n-1], out[n-1]
	}
	return system, out, nil
}

func toGeminiSchema(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}
	s := &genai.Schema{}
	switch t, _ := m["type"].(string); t {
	case "string":
		s.Type = genai.TypeString
	case "number":
		s.Type = genai.TypeNumber
	case "integer":
		s.Type = genai.TypeInteger
	case "boolean":
		s.Type = genai.TypeBoolean
	case "array":
		s.Type = genai.TypeArray
	case "object":
		s.Type = genai.TypeObject
	default:
		s.Type = genai.TypeString
	}
	s.Description, _ = m["description"].(string)
	if props, ok := m["properties"].(map[string]any); ok && len(props) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if pm, ok := raw.(map[string]any); ok {
				s.Properties[name] = toGeminiSchema(pm)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = toGeminiSchema(items)
	} else if s.Type == genai.TypeArray {
		s.Items = &genai.Schema{Type: genai.TypeString}
	}
	switch req := m["required"].(type) {
	case []string:
		s.Required = req
	case []any:
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	return s
}

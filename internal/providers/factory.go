package providers

import (
	"fmt"

	"github.com/riskpilot/riskpilot/internal/schema"
)

// Params are the raw values needed to construct any schema.LLMProvider.
// Extracted from config.Config by the caller to avoid an import cycle.
type Params struct {
	APIKey       string
	APIBase      string
	ExtraHeaders map[string]string
	DefaultModel string
	ProviderName string // registry name, e.g. "groq", "anthropic"
}

// New creates the schema.LLMProvider for p. The backend follows the registry
// entry resolved from the provider name, API key, base URL and model; any
// provider without a native SDK goes through the OpenAI-compatible client.
func New(p Params) (schema.LLMProvider, error) {
	r := newRoute(p.ProviderName, p.APIKey, p.APIBase, p.DefaultModel)
	backend := BackendOpenAI
	switch {
	case r.gateway != nil:
		backend = r.gateway.Backend
	case r.spec != nil:
		backend = r.spec.Backend
	}

	switch backend {
	case BackendAnthropic:
		return NewAnthropicProvider(p.APIKey, p.APIBase, p.DefaultModel, p.ExtraHeaders), nil
	case BackendGemini:
		return NewGeminiProvider(p.APIKey, p.DefaultModel), nil
	case BackendOllama:
		return NewOllamaProvider(p.APIBase, p.DefaultModel, p.ExtraHeaders)
	case BackendOpenAI, "":
		return NewOpenAIProvider(p.APIKey, p.APIBase, p.DefaultModel, p.ProviderName, p.ExtraHeaders), nil
	default:
		return nil, fmt.Errorf("unknown provider backend %q", backend)
	}
}

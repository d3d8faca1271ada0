package provider

const (
	ProviderCustom     = "custom"
	ProviderOpenRouter = "openrouter"
	ProviderGroq       = "groq"
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderDeepSeek   = "deepseek"
	ProviderGemini     = "gemini"
	ProviderOllama     = "ollama"
	ProviderVLLM       = "vllm"
)

// ProviderConfig holds credentials for one LLM provider.
type ProviderConfig struct {
	APIKey       string            `json:"apiKey"`
	APIBase      string            `json:"apiBase,omitempty"`
	ExtraHeaders map[string]string `json:"extraHeaders,omitempty"`
}

// Configured reports whether the entry carries enough to be used.
// Local providers only need a base URL.
func (p ProviderConfig) Configured(local bool) bool {
	if local {
		return p.APIKey != "" || p.APIBase != ""
	}
	return p.APIKey != ""
}

// ProvidersConfig holds credentials for all supported LLM providers.
type ProvidersConfig struct {
	Custom     ProviderConfig `json:"custom"`
	OpenRouter ProviderConfig `json:"openrouter"`
	Groq       ProviderConfig `json:"groq"`
	Anthropic  ProviderConfig `json:"anthropic"`
	OpenAI     ProviderConfig `json:"openai"`
	DeepSeek   ProviderConfig `json:"deepseek"`
	Gemini     ProviderConfig `json:"gemini"`
	Ollama     ProviderConfig `json:"ollama"`
	VLLM       ProviderConfig `json:"vllm"`
}

func DefaultProvidersConfig() ProvidersConfig {
	return ProvidersConfig{}
}

// ByName returns a pointer to the ProviderConfig field matching the given
// registry name. Returns nil if the name is unknown.
func (p *ProvidersConfig) ByName(name string) *ProviderConfig {
	switch name {
	case ProviderCustom:
		return &p.Custom
	case ProviderOpenRouter:
		return &p.OpenRouter
	case ProviderGroq:
		return &p.Groq
	case ProviderAnthropic:
		return &p.Anthropic
	case ProviderOpenAI:
		return &p.OpenAI
	case ProviderDeepSeek:
		return &p.DeepSeek
	case ProviderGemini:
		return &p.Gemini
	case ProviderOllama:
		return &p.Ollama
	case ProviderVLLM:
		return &p.VLLM
	}
	return nil
}

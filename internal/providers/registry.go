package providers

import "strings"

// Backend names the client library a provider is served by.
type Backend string

const (
	BackendOpenAI    Backend = "openai" // any OpenAI-compatible endpoint
	BackendAnthropic Backend = "anthropic"
	BackendGemini    Backend = "gemini"
	BackendOllama    Backend = "ollama"
)

// ProviderSpec is the metadata record for one LLM provider.
type ProviderSpec struct {
	// Identity
	Name        string   // config field name, e.g. "groq"
	Keywords    []string // model-name keywords for matching (lowercase)
	EnvKey      string   // env var consulted when the config has no API key
	DisplayName string   // shown in `riskpilot status`
	Backend     Backend

	// Model prefixing
	ModelPrefix string // routing prefix stripped before the model reaches the API

	// Gateway / local detection
	IsGateway           bool   // routes any model (OpenRouter)
	IsLocal             bool   // local deployment (vLLM, Ollama)
	DetectByKeyPrefix   string // match api_key prefix to identify gateway
	DetectByBaseKeyword string // match substring in api_base URL
	DefaultAPIBase      string // fallback base URL when none is configured

	// Gateway behaviour
	StripModelPrefix bool // strip everything up to the last "/" from the model name
}

// Label returns the display name, defaulting to Title-cased Name.
func (s ProviderSpec) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return strings.ToTitle(s.Name[:1]) + s.Name[1:]
}

// NeedsAPIKey reports whether the provider can be used without a key.
func (s ProviderSpec) NeedsAPIKey() bool { return !s.IsLocal }

// ---------------------------------------------------------------------------
// PROVIDERS is the registry. Order = match priority.
// ---------------------------------------------------------------------------

var PROVIDERS = []ProviderSpec{
	{
		Name:        "custom",
		DisplayName: "Custom",
		Backend:     BackendOpenAI,
	},
	{
		Name:                "openrouter",
		Keywords:            []string{"openrouter"},
		EnvKey:              "OPENROUTER_API_KEY",
		DisplayName:         "OpenRouter",
		Backend:             BackendOpenAI,
		ModelPrefix:         "openrouter",
		IsGateway:           true,
		DetectByKeyPrefix:   "sk-or-",
		DetectByBaseKeyword: "openrouter",
		DefaultAPIBase:      "https://openrouter.ai/api/v1",
	},
	{
		Name:        "groq",
		Keywords:    []string{"groq"},
		EnvKey:      "GROQ_API_KEY",
		DisplayName: "Groq",
		Backend:     BackendOpenAI,
		ModelPrefix: "groq",
		// Groq serves the OpenAI chat-completions wire format.
		DefaultAPIBase: "https://api.groq.com/openai/v1",
	},
	{
		Name:        "anthropic",
		Keywords:    []string{"anthropic", "claude"},
		EnvKey:      "ANTHROPIC_API_KEY",
		DisplayName: "Anthropic",
		Backend:     BackendAnthropic,
		ModelPrefix: "anthropic",
	},
	{
		Name:        "openai",
		Keywords:    []string{"openai", "gpt"},
		EnvKey:      "OPENAI_API_KEY",
		DisplayName: "OpenAI",
		Backend:     BackendOpenAI,
		ModelPrefix: "openai",
	},
	{
		Name:           "deepseek",
		Keywords:       []string{"deepseek"},
		EnvKey:         "DEEPSEEK_API_KEY",
		DisplayName:    "DeepSeek",
		Backend:        BackendOpenAI,
		ModelPrefix:    "deepseek",
		DefaultAPIBase: "https://api.deepseek.com/v1",
	},
	{
		Name:        "gemini",
		Keywords:    []string{"gemini"},
		EnvKey:      "GEMINI_API_KEY",
		DisplayName: "Gemini",
		Backend:     BackendGemini,
		ModelPrefix: "gemini",
	},
	{
		Name:           "ollama",
		Keywords:       []string{"ollama"},
		EnvKey:         "OLLAMA_HOST",
		DisplayName:    "Ollama",
		Backend:        BackendOllama,
		ModelPrefix:    "ollama",
		IsLocal:        true,
		DefaultAPIBase: "http://localhost:11434",
	},
	{
		Name:        "vllm",
		Keywords:    []string{"vllm"},
		EnvKey:      "HOSTED_VLLM_API_KEY",
		DisplayName: "vLLM/Local",
		Backend:     BackendOpenAI,
		ModelPrefix: "hosted_vllm",
		IsLocal:     true,
	},
}

// FindByModel matches a standard provider by model-name keyword (case-insensitive).
// Skips gateways and local providers; those are matched by api_key/api_base.
func FindByModel(model string) *ProviderSpec {
	modelLower := strings.ToLower(model)
	modelNorm := strings.ReplaceAll(modelLower, "-", "_")
	modelPrefix, _, _ := strings.Cut(modelLower, "/")
	normalizedPrefix := strings.ReplaceAll(modelPrefix, "-", "_")

	// Collect non-gateway, non-local specs.
	var std []int
	for i := range PROVIDERS {
		if !PROVIDERS[i].IsGateway && !PROVIDERS[i].IsLocal {
			std = append(std, i)
		}
	}

	// Prefer explicit provider prefix.
	for _, i := range std {
		spec := &PROVIDERS[i]
		if modelPrefix != "" && normalizedPrefix == spec.Name {
			return spec
		}
	}

	// Keyword match.
	for _, i := range std {
		spec := &PROVIDERS[i]
		for _, kw := range spec.Keywords {
			kw = strings.ToLower(kw)
			kwNorm := strings.ReplaceAll(kw, "-", "_")
			if strings.Contains(modelLower, kw) || strings.Contains(modelNorm, kwNorm) {
				return spec
			}
		}
	}
	return nil
}

// FindGateway detects the gateway or local provider.
// Priority: (1) explicit provider name, (2) api_key prefix, (3) api_base keyword.
func FindGateway(providerName, apiKey, apiBase string) *ProviderSpec {
	if providerName != "" {
		if s := FindByName(providerName); s != nil && (s.IsGateway || s.IsLocal) {
			return s
		}
	}
	for i := range PROVIDERS {
		spec := &PROVIDERS[i]
		if spec.DetectByKeyPrefix != "" && strings.HasPrefix(apiKey, spec.DetectByKeyPrefix) {
			return spec
		}
		if spec.DetectByBaseKeyword != "" && strings.Contains(apiBase, spec.DetectByBaseKeyword) {
			return spec
		}
	}
	return nil
}

// FindByName returns the ProviderSpec whose Name equals name.
func FindByName(name string) *ProviderSpec {
	for i := range PROVIDERS {
		if PROVIDERS[i].Name == name {
			return &PROVIDERS[i]
		}
	}
	return nil
}

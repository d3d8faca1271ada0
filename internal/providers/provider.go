// Package providers implements schema.LLMProvider on top of the vendor SDKs:
// go-openai for every OpenAI-compatible endpoint (Groq, OpenAI, OpenRouter,
// DeepSeek, vLLM, custom), anthropic-sdk-go, generative-ai-go and the Ollama
// API client.
package providers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

const defaultMaxTokens = 4096

// route holds the resolved registry entries for one configured provider.
type route struct {
	gateway *ProviderSpec // non-nil for gateway/local providers
	spec    *ProviderSpec // non-nil for standard providers
}

func newRoute(providerName, apiKey, apiBase, model string) route {
	gateway := FindGateway(providerName, apiKey, apiBase)

	var spec *ProviderSpec
	if gateway == nil {
		spec = FindByModel(model)
		if spec == nil {
			spec = FindByName(providerName)
		}
	}
	return route{gateway: gateway, spec: spec}
}

// apiBase resolves the effective API base: configured > gateway default >
// provider default > fallback.
func (r route) apiBase(configured, fallback string) string {
	base := configured
	if base == "" {
		switch {
		case r.gateway != nil && r.gateway.DefaultAPIBase != "":
			base = r.gateway.DefaultAPIBase
		case r.spec != nil && r.spec.DefaultAPIBase != "":
			base = r.spec.DefaultAPIBase
		default:
			base = fallback
		}
	}
	return strings.TrimRight(base, "/")
}

// resolveModel strips routing prefixes from the model string so the provider
// API receives the bare model name it expects.
//
// Gateway providers keep the "provider/model" sub-prefix because the gateway
// needs it for routing; only the gateway's own prefix is stripped. Standard
// providers strip their own name prefix ("groq/llama-3.1-8b-instant" becomes
// "llama-3.1-8b-instant").
func (r route) resolveModel(model string) string {
	if r.gateway != nil {
		if r.gateway.StripModelPrefix {
			if i := strings.LastIndex(model, "/"); i >= 0 {
				return model[i+1:]
			}
			return model
		}
		for _, pfx := range []string{r.gateway.ModelPrefix, r.gateway.Name} {
			if pfx == "" {
				continue
			}
			full := pfx + "/"
			if strings.HasPrefix(strings.ToLower(model), full) {
				return model[len(full):]
			}
		}
		return model
	}

	var prefixes []string
	if r.spec != nil {
		prefixes = append(prefixes, r.spec.ModelPrefix, r.spec.Name)
	}
	for _, pfx := range prefixes {
		if pfx == "" {
			continue
		}
		full := pfx + "/"
		if strings.HasPrefix(strings.ToLower(model), full) {
			return model[len(full):]
		}
	}
	// Fallback: strip any unknown provider prefix recognised in registry.
	if strings.Contains(model, "/") {
		parts := strings.SplitN(model, "/", 2)
		norm := strings.ReplaceAll(strings.ToLower(parts[0]), "-", "_")
		if FindByName(norm) != nil {
			return parts[1]
		}
	}
	return model
}

// parseArguments decodes a tool-call argument string, repairing the common
// truncations some models produce. Unrecoverable input yields an empty map.
func parseArguments(toolName, raw string) map[string]any {
	args, err := repairJSON(raw)
	if err != nil {
		slog.Warn("failed to parse tool arguments", "tool", toolName, "err", err)
		return map[string]any{}
	}
	return args
}

func repairJSON(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return map[string]any{}, nil
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		if out == nil {
			out = map[string]any{}
		}
		return out, nil
	}

	// Attempt 1: trim trailing non-JSON characters.
	stripped := strings.TrimRight(raw, " \t\n\r}]")
	if !strings.HasSuffix(stripped, "}") {
		stripped += "}"
	}
	if err := json.Unmarshal([]byte(stripped), &out); err == nil {
		return out, nil
	}

	// Attempt 2: find the last complete JSON object.
	if i := strings.LastIndex(raw, "}"); i >= 0 {
		if err := json.Unmarshal([]byte(raw[:i+1]), &out); err == nil {
			return out, nil
		}
	}

	return map[string]any{}, fmt.Errorf("cannot repair JSON: %s", raw)
}

// callID returns id, or a synthesized unique id when the backend sent none.
func callID(id string) string {
	if id != "" {
		return id
	}
	return "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

// toJSON marshals v for wire formats that take the arguments as a string.
func toJSON(v any) string {
	if v == nil {
		return "{}"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

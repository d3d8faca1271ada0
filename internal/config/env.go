package config

import (
	"os"
	"strings"

	"github.com/spf13/cast"

	"github.com/riskpilot/riskpilot/internal/config/tool"
	"github.com/riskpilot/riskpilot/internal/providers"
)

// Environment overrides honoured by ApplyEnv.
const (
	EnvModel       = "RISKPILOT_MODEL"
	EnvMode        = "RISKPILOT_MODE"
	EnvTemperature = "RISKPILOT_TEMPERATURE"
	EnvMCPURL      = "RISKPILOT_MCP_URL"
	EnvOCRURL      = "RISKPILOT_OCR_URL"
)

// ApplyEnv fills cfg from the process environment. Provider credentials are
// only taken from a registry entry's EnvKey when the config file left them
// empty; the RISKPILOT_* variables always win. A local provider's EnvKey
// names its base URL rather than a key.
func ApplyEnv(cfg *Config) {
	applyEnv(cfg, os.Getenv)
}

func applyEnv(cfg *Config, getenv func(string) string) {
	for _, spec := range providers.PROVIDERS {
		if spec.EnvKey == "" {
			continue
		}
		p := cfg.ProviderByName(spec.Name)
		v := strings.TrimSpace(getenv(spec.EnvKey))
		if p == nil || v == "" {
			continue
		}
		switch {
		case spec.Backend == providers.BackendOllama:
			if p.APIBase == "" {
				p.APIBase = v
			}
		case p.APIKey == "":
			p.APIKey = v
		}
	}

	if v := getenv(EnvModel); v != "" {
		cfg.Agents.Defaults.Model = v
	}
	if v := getenv(EnvMode); v != "" {
		cfg.Agents.Defaults.Mode = strings.ToLower(v)
	}
	if v := getenv(EnvTemperature); v != "" {
		if t, err := cast.ToFloat64E(v); err == nil {
			cfg.Agents.Defaults.Temperature = t
		}
	}
	if v := getenv(EnvMCPURL); v != "" {
		if cfg.Tools.MCPServers == nil {
			cfg.Tools.MCPServers = map[string]tool.MCPServerConfig{}
		}
		srv := cfg.Tools.MCPServers[tool.DefaultMCPServer]
		srv.URL = v
		srv.Command = ""
		cfg.Tools.MCPServers[tool.DefaultMCPServer] = srv
	}
	if v := getenv(EnvOCRURL); v != "" {
		cfg.Tools.OCR.URL = v
	}
}

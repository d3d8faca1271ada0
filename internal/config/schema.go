// Package config defines the configuration schema for riskpilot.
//
// JSON keys use camelCase. Each section lives in its own sub-package so the
// packages that consume one section do not depend on the whole tree.
package config

import (
	"os"
	"path/filepath"

	"github.com/riskpilot/riskpilot/internal/config/agent"
	"github.com/riskpilot/riskpilot/internal/config/gateway"
	"github.com/riskpilot/riskpilot/internal/config/provider"
	"github.com/riskpilot/riskpilot/internal/config/store"
	"github.com/riskpilot/riskpilot/internal/config/tool"
)

// Config is the root configuration object, loaded from ~/.riskpilot/config.json.
type Config struct {
	Agents    agent.AgentsConfig       `json:"agents"`
	Providers provider.ProvidersConfig `json:"providers"`
	Gateway   gateway.GatewayConfig    `json:"gateway"`
	Tools     tool.ToolsConfig         `json:"tools"`
	Session   store.SessionConfig      `json:"session"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Agents:    agent.DefaultAgentsConfig(),
		Providers: provider.DefaultProvidersConfig(),
		Gateway:   gateway.DefaultGatewayConfig(),
		Tools:     tool.DefaultToolConfigs(),
		Session:   store.DefaultSessionConfig(),
	}
}

// WorkspacePath returns the expanded absolute path to the agent workspace.
func (c *Config) WorkspacePath() string {
	ws := c.Agents.Defaults.Workspace
	if ws == "" {
		ws = "~/.riskpilot/workspace"
	}
	return expandHome(ws)
}

// SessionsPath returns the directory used by the jsonl session backend.
func (c *Config) SessionsPath() string {
	return filepath.Join(DataDir(), "sessions")
}

// SessionDSN resolves the DSN for the configured session backend. The sqlite
// backend defaults to a database file in the data directory.
func (c *Config) SessionDSN() string {
	switch c.Session.Backend {
	case store.BackendSQLite:
		if c.Session.DSN == "" {
			return filepath.Join(DataDir(), "sessions.db")
		}
		return expandHome(c.Session.DSN)
	case store.BackendPostgres:
		return c.Session.DSN
	default:
		return c.SessionsPath()
	}
}

// ProviderByName returns a pointer to the ProviderConfig field matching the
// given registry name (e.g. "groq", "anthropic"). Returns nil if unknown.
func (c *Config) ProviderByName(name string) *provider.ProviderConfig {
	return c.Providers.ByName(name)
}

func expandHome(p string) string {
	if len(p) >= 2 && p[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}

package mcp

import (
	"sort"
	"strings"
)

// Transport names accepted in ServerConfig.Transport.
const (
	TransportHTTP  = "http"
	TransportSSE   = "sse"
	TransportStdio = "stdio"
)

// ServerConfig holds the connection parameters for a single MCP server.
// A non-empty Command selects stdio; otherwise URL is dialled over
// Transport ("http" streamable HTTP by default, or "sse").
type ServerConfig struct {
	Command   string
	Args      []string
	Env       map[string]string
	URL       string
	Transport string
	Headers   map[string]string
}

func (c ServerConfig) transport() string {
	if c.Command != "" {
		return TransportStdio
	}
	switch strings.ToLower(c.Transport) {
	case TransportSSE:
		return TransportSSE
	case "", TransportHTTP, "streamable-http", "streamable_http":
		return TransportHTTP
	}
	return strings.ToLower(c.Transport)
}

// envList renders env as sorted KEY=VALUE pairs.
func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

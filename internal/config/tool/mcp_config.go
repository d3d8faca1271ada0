package tool

// MCPServerConfig describes one MCP server connection (stdio, SSE or
// streamable HTTP).
type MCPServerConfig struct {
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	URL       string            `json:"url,omitempty"`
	Transport string            `json:"transport,omitempty"` // "http" (default) or "sse"
	Headers   map[string]string `json:"headers,omitempty"`
}

package tool

// DefaultMCPServer is the name of the risk-model server configured out of the box.
const DefaultMCPServer = "medical"

// ToolsConfig groups all tool-level settings.
type ToolsConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
	OCR        OCRConfig                  `json:"ocr"`
}

func DefaultToolConfigs() ToolsConfig {
	return ToolsConfig{
		MCPServers: map[string]MCPServerConfig{
			DefaultMCPServer: {URL: "http://127.0.0.1:8005/mcp/", Transport: "http"},
		},
		OCR: DefaultOCRConfig(),
	}
}

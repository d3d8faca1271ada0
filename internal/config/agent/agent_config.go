package agent

const (
	ModeChat     = "chat"
	ModeWorkflow = "workflow"
)

type AgentDefaults struct {
	Workspace    string  `json:"workspace"`
	Model        string  `json:"model"`
	ReportModel  string  `json:"reportModel,omitempty"` // clinical report; falls back to Model
	MaxTokens    int     `json:"maxTokens"`
	Temperature  float64 `json:"temperature"`
	MemoryWindow int     `json:"memoryWindow"`
	Mode         string  `json:"mode"` // "chat" or "workflow"
}

type AgentsConfig struct {
	Defaults AgentDefaults `json:"defaults"`
}

func defaultAgentDefaults() AgentDefaults {
	return AgentDefaults{
		Workspace:    "~/.riskpilot/workspace",
		Model:        "groq/llama-3.1-8b-instant",
		MaxTokens:    1024,
		Temperature:  0,
		MemoryWindow: 50,
		Mode:         ModeWorkflow,
	}
}

func DefaultAgentsConfig() AgentsConfig {
	return AgentsConfig{Defaults: defaultAgentDefaults()}
}

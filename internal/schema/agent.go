package schema

import "context"

// Agent modes.
const (
	ModeChat     = "chat"
	ModeWorkflow = "workflow"
)

type AgentSettings struct {
	Model        string
	ReportModel  string
	Temperature  float64
	MaxTokens    int
	MemoryWindow int
}

func NewAgentSettings(model, reportModel string, temperature float64, maxTokens int, memoryWindow int) AgentSettings {
	return AgentSettings{
		Model:        model,
		ReportModel:  reportModel,
		Temperature:  temperature,
		MaxTokens:    maxTokens,
		MemoryWindow: memoryWindow,
	}
}

// ChatOptions returns the default per-request options for these settings.
func (s AgentSettings) ChatOptions() ChatOptions {
	return NewChatOptions(s.Model, s.MaxTokens, s.Temperature)
}

// TurnResult is what one processed user turn hands back to the caller.
type TurnResult struct {
	Reply   string
	History History
	// Workflow is set by the risk-assessment workflow engine only.
	Workflow *WorkflowSnapshot
}

// Engine processes one user turn against a history and returns the reply
// together with the new history. On error the caller's history is unchanged.
type Engine interface {
	Process(ctx context.Context, history History, text string) (TurnResult, error)
	Close() error
}

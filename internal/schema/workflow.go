package schema

// HighRiskThreshold is the score above which a result is reported as high risk.
const HighRiskThreshold = 0.6

// ModelResult is the outcome of one risk-model execution.
type ModelResult struct {
	Disease    string  `json:"disease"`
	RiskScore  float64 `json:"risk_score"`
	FullReport any     `json:"full_report"`
}

// HighRisk reports whether the score is strictly above HighRiskThreshold.
func (r ModelResult) HighRisk() bool { return r.RiskScore > HighRiskThreshold }

// WorkflowSnapshot exposes the final state of one workflow run.
type WorkflowSnapshot struct {
	Intent         string         `json:"intent"`
	RequiredParams []string       `json:"required_params"`
	ExtractedData  map[string]any `json:"extracted_data"`
	ModelResult    *ModelResult   `json:"model_result"`
	Trace          []string       `json:"trace,omitempty"`
}

package workflow

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/riskpilot/riskpilot/internal/schema"
)

// reportPrompt builds the clinical interpretation request for one result.
func reportPrompt(data map[string]any, res schema.ModelResult) string {
	patient, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		patient = []byte(fmt.Sprint(data))
	}

	level := "not high risk"
	if res.HighRisk() {
		level = "high risk"
	}
	threshold := strconv.FormatFloat(schema.HighRiskThreshold, 'f', -1, 64)

	var b strings.Builder
	b.WriteString("You are an expert Clinical Analysis AI. Interpret the risk prediction below for a clinician.\n\n")
	fmt.Fprintf(&b, "**Patient Data Provided:**\n%s\n\n", patient)
	b.WriteString("**Model Prediction:**\n")
	fmt.Fprintf(&b, "- Disease Assessed: %s\n", res.Disease)
	fmt.Fprintf(&b, "- Calculated Risk Score: %.2f (A score > %s is considered high risk)\n", res.RiskScore, threshold)
	fmt.Fprintf(&b, "- Risk Level: %s\n\n", level)
	b.WriteString("**Your Tasks:**\n")
	b.WriteString("1. Summary: state the predicted risk level in one sentence.\n")
	b.WriteString("2. Interpretation: explain what the score means for this patient.\n")
	b.WriteString("3. Key Factors: name the values in the patient data that most likely drive the score.\n")
	b.WriteString("4. Recommendation: suggest next steps and remind the reader this is not a diagnosis.\n\n")
	b.WriteString("Provide a concise report.")
	return b.String()
}

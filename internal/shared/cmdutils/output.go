package cmdutils

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/riskpilot/riskpilot/internal/schema"
)

const logo = "🩺"

func PrintResponse(w io.Writer, text string) {
	if text == "" {
		return
	}
	fmt.Fprintf(w, "\n%s %s\n%s\n\n", logo, color.CyanString("riskpilot"), text)
}

// PrintWorkflow renders the workflow state that accompanied a reply.
func PrintWorkflow(w io.Writer, snap *schema.WorkflowSnapshot) {
	if snap == nil {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", color.YellowString("intent:"), snap.Intent)
	if len(snap.ExtractedData) > 0 {
		keys := make([]string, 0, len(snap.ExtractedData))
		for k := range snap.ExtractedData {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, snap.ExtractedData[k]))
		}
		fmt.Fprintf(&sb, "%s %s\n", color.YellowString("extracted:"), strings.Join(pairs, ", "))
	}
	if snap.ModelResult != nil {
		score := color.GreenString("%.2f", snap.ModelResult.RiskScore)
		if snap.ModelResult.HighRisk() {
			score = color.RedString("%.2f", snap.ModelResult.RiskScore)
		}
		fmt.Fprintf(&sb, "%s %s %s\n", color.YellowString("risk:"), snap.ModelResult.Disease, score)
	}
	fmt.Fprint(w, sb.String())
}

// PrintError writes a red error line.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", color.RedString("Error:"), err)
}

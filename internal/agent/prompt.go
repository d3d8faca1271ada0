package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/riskpilot/riskpilot/internal/schema"
)

// bootstrapFiles lists workspace files appended to the system prompt.
var bootstrapFiles = []string{"AGENTS.md"}

// PromptBuilder assembles the chat-mode system prompt.
type PromptBuilder struct {
	workspace string
	now       func() time.Time
}

// NewPromptBuilder creates a PromptBuilder for the given workspace.
// An empty workspace disables bootstrap files.
func NewPromptBuilder(workspace string) *PromptBuilder {
	return &PromptBuilder{workspace: workspace, now: time.Now}
}

// Build returns the system prompt for a turn bound to tools.
func (pb *PromptBuilder) Build(tools []schema.ToolDefinition) string {
	parts := []string{pb.buildIdentity(), pb.buildTools(tools)}
	if bootstrap := pb.loadBootstrapFiles(); bootstrap != "" {
		parts = append(parts, bootstrap)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func (pb *PromptBuilder) buildIdentity() string {
	now := pb.now()
	tz, _ := now.Zone()
	if tz == "" {
		tz = "UTC"
	}
	return fmt.Sprintf(`# riskpilot

You are riskpilot, a clinical assistant that helps users understand their health risks.

## Current Time
%s (%s)

Answer directly when no tool is needed. When a tool can answer the question, call it with the
values the user gave you; never invent values the user did not provide. After tool results
arrive, explain them in plain language and remind the user that scores are estimates, not a
diagnosis.`, now.Format("2006-01-02 15:04 (Monday)"), tz)
}

func (pb *PromptBuilder) buildTools(tools []schema.ToolDefinition) string {
	if len(tools) == 0 {
		return "## Tools\n\nNo tools are available right now; answer from the conversation alone."
	}
	var sb strings.Builder
	sb.WriteString("## Tools\n")
	for _, t := range tools {
		fmt.Fprintf(&sb, "\n- %s", t.Name)
		if t.Description != "" {
			fmt.Fprintf(&sb, ": %s", firstLine(t.Description))
		}
	}
	return sb.String()
}

// loadBootstrapFiles reads the bootstrap markdown files from the workspace.
func (pb *PromptBuilder) loadBootstrapFiles() string {
	if pb.workspace == "" {
		return ""
	}
	var parts []string
	for _, name := range bootstrapFiles {
		data, err := os.ReadFile(filepath.Join(pb.workspace, name))
		if err != nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("## %s\n\n%s", name, strings.TrimSpace(string(data))))
	}
	return strings.Join(parts, "\n\n")
}

// WithFileContext prefixes a user query with text extracted from an uploaded file.
func WithFileContext(query, extracted string) string {
	if strings.TrimSpace(extracted) == "" {
		return query
	}
	return "Context from uploaded file:\n---\n" + extracted + "\n---\n\nUser query: " + query
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

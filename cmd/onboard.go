package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/riskpilot/riskpilot/internal/config"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration and workspace",
	RunE:  runOnboard,
}

const agentsTemplate = `# Agent Instructions

You help clinicians and patients estimate disease risk from the values they provide.

## Guidelines

- Ask for any missing measurement instead of guessing it
- Quote the risk score and what it means in plain language
- Never present a score as a diagnosis
`

func runOnboard(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("Config already exists at %s\n", cfgPath)
		fmt.Printf("Press Enter to refresh (keep existing values) or Ctrl+C to cancel: ")
		fmt.Scanln()
		existing, loadErr := config.Load(cfgPath)
		if loadErr != nil {
			def := config.DefaultConfig()
			existing = &def
		}
		if err := config.Save(existing, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Config refreshed at %s\n", cfgPath)
	} else {
		cfg := config.DefaultConfig()
		if err := config.Save(&cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Created config at %s\n", cfgPath)
	}

	def := config.DefaultConfig()
	workspace := def.WorkspacePath()
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	fmt.Printf("✓ Workspace at %s\n", workspace)

	p := filepath.Join(workspace, "AGENTS.md")
	if _, err := os.Stat(p); os.IsNotExist(err) {
		if err := os.WriteFile(p, []byte(agentsTemplate), 0o644); err != nil {
			return fmt.Errorf("write AGENTS.md: %w", err)
		}
		fmt.Println("  Created AGENTS.md")
	}

	fmt.Printf("\n%s riskpilot is ready!\n\n", logo)
	fmt.Println("Next steps:")
	fmt.Printf("  1. Export GROQ_API_KEY (or put it in .env) or add a key to %s\n", cfgPath)
	fmt.Println("  2. Start the risk-model MCP server on http://127.0.0.1:8005/mcp/")
	fmt.Printf("  3. Chat: riskpilot agent -m \"I am 45, female, BMI 28.5...\"\n")
	return nil
}

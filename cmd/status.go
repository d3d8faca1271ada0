package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/riskpilot/riskpilot/internal/config"
	"github.com/riskpilot/riskpilot/internal/providers"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show riskpilot status",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	fmt.Printf("%s riskpilot Status\n\n", logo)

	_, statErr := os.Stat(cfgPath)
	cfgMark := "✗"
	if statErr == nil {
		cfgMark = "✓"
	}
	fmt.Printf("Config:    %s %s\n", cfgPath, cfgMark)

	cfg, err := loadConfig("")
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	ws := cfg.WorkspacePath()
	_, wsErr := os.Stat(ws)
	wsMark := "✗"
	if wsErr == nil {
		wsMark = "✓"
	}

	d := cfg.Agents.Defaults
	fmt.Printf("Workspace: %s %s\n", ws, wsMark)
	fmt.Printf("Model:     %s\n", d.Model)
	if d.ReportModel != "" {
		fmt.Printf("Report:    %s\n", d.ReportModel)
	}
	fmt.Printf("Mode:      %s\n", d.Mode)
	fmt.Printf("Sessions:  %s (%s)\n", cfg.Session.Backend, cfg.SessionDSN())
	fmt.Printf("OCR:       %s\n\n", cfg.Tools.OCR.URL)

	fmt.Println("Providers:")
	for _, spec := range providers.PROVIDERS {
		p := cfg.ProviderByName(spec.Name)
		if p == nil {
			continue
		}
		label := spec.Label()
		switch {
		case spec.IsLocal:
			if p.APIBase != "" {
				fmt.Printf("  %-20s ✓ %s\n", label, p.APIBase)
			} else {
				fmt.Printf("  %-20s (not set)\n", label)
			}
		default:
			if p.APIKey != "" {
				fmt.Printf("  %-20s ✓\n", label)
			} else {
				fmt.Printf("  %-20s (not set)\n", label)
			}
		}
	}

	fmt.Println("\nMCP servers:")
	names := make([]string, 0, len(cfg.Tools.MCPServers))
	for name := range cfg.Tools.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		fmt.Println("  (none)")
	}
	for _, name := range names {
		s := cfg.Tools.MCPServers[name]
		if s.Command != "" {
			fmt.Printf("  %-20s stdio: %s\n", name, s.Command)
			continue
		}
		transport := s.Transport
		if transport == "" {
			transport = "http"
		}
		fmt.Printf("  %-20s %s: %s\n", name, transport, s.URL)
	}
	return nil
}

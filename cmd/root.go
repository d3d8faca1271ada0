// Package cmd implements the riskpilot CLI using cobra.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/riskpilot/riskpilot/internal/config"
	agentcfg "github.com/riskpilot/riskpilot/internal/config/agent"
)

const version = "0.1.0"
const logo = "🩺"

var (
	verbose  bool
	logLevel = new(slog.LevelVar)
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "riskpilot",
	Short: logo + " riskpilot: clinical risk assessment agent",
	Long: logo + ` riskpilot turns free-text patient descriptions into calls against remote
risk-scoring models and writes a clinical report from the result.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		if verbose {
			logLevel.Set(slog.LevelDebug)
		}
		return nil
	},
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// loadConfig reads the config file, applies environment overrides and an
// optional mode override from the command line.
func loadConfig(mode string) (*config.Config, error) {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	config.ApplyEnv(cfg)
	if mode != "" {
		mode = strings.ToLower(mode)
		if mode != agentcfg.ModeChat && mode != agentcfg.ModeWorkflow {
			return nil, fmt.Errorf("--mode must be %q or %q", agentcfg.ModeChat, agentcfg.ModeWorkflow)
		}
		cfg.Agents.Defaults.Mode = mode
	}
	return cfg, nil
}

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/riskpilot/riskpilot/internal/agent"
	"github.com/riskpilot/riskpilot/internal/container"
	"github.com/riskpilot/riskpilot/internal/shared/cmdutils"
)

var (
	agentMessage string
	agentSession string
	agentMode    string
	agentAttach  string
	agentNew     bool
	agentLogs    bool
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Interact with the agent",
	RunE:  runAgent,
}

func init() {
	agentCmd.Flags().StringVarP(&agentMessage, "message", "m", "", "Send a single message and exit")
	agentCmd.Flags().StringVarP(&agentSession, "session", "s", "cli:direct", "Session ID")
	agentCmd.Flags().StringVar(&agentMode, "mode", "", "Override the agent mode (chat or workflow)")
	agentCmd.Flags().StringVar(&agentAttach, "attach", "", "Image or PDF whose extracted text is added to the first message")
	agentCmd.Flags().BoolVar(&agentNew, "new", false, "Start a fresh session with a generated ID")
	agentCmd.Flags().BoolVar(&agentLogs, "logs", false, "Show runtime logs")
}

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

func runAgent(_ *cobra.Command, _ []string) error {
	if !agentLogs && !verbose {
		logLevel.Set(slog.LevelWarn)
	}

	cfg, err := loadConfig(agentMode)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	sessionKey := agentSession
	if agentNew {
		sessionKey = "cli:" + ulid.Make().String()
		fmt.Fprintf(os.Stderr, "Session: %s\n", sessionKey)
	}

	fileContext := ""
	if agentAttach != "" {
		fmt.Fprintf(os.Stderr, "  ↳ extracting text from %s...\n", agentAttach)
		if fileContext, err = c.OCR().Extract(ctx, agentAttach); err != nil {
			return fmt.Errorf("attach %s: %w", agentAttach, err)
		}
		if fileContext == "" {
			fmt.Fprintln(os.Stderr, "  ↳ no text extracted")
		}
	}

	if agentMessage != "" {
		return runSingleMessage(ctx, c.Service(), sessionKey, agent.WithFileContext(agentMessage, fileContext))
	}
	return runInteractive(ctx, c.Service(), sessionKey, fileContext)
}

// runSingleMessage sends one message to the agent and prints the response.
func runSingleMessage(ctx context.Context, svc *agent.Service, sessionKey, content string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	fmt.Fprintf(os.Stderr, "  ↳ thinking...\n")
	res, err := svc.ProcessDirect(ctx, content, sessionKey)
	if err != nil {
		return err
	}
	cmdutils.PrintWorkflow(os.Stderr, res.Workflow)
	cmdutils.PrintResponse(os.Stdout, res.Reply)
	return nil
}

// runInteractive reads lines from stdin and runs one turn per line. The
// attachment text, if any, is added to the first message only.
func runInteractive(ctx context.Context, svc *agent.Service, sessionKey, fileContext string) error {
	fmt.Printf("%s Interactive mode (type 'exit' or Ctrl+C to quit)\n\n", logo)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("You: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Println("\nGoodbye!")
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Println("\nGoodbye!")
				return nil
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			fmt.Println("Goodbye!")
			return nil
		}

		content := line
		if fileContext != "" && !strings.HasPrefix(line, "/") {
			content = agent.WithFileContext(line, fileContext)
			fileContext = ""
		}

		res, err := svc.ProcessDirect(ctx, content, sessionKey)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Println("\nGoodbye!")
				return nil
			}
			cmdutils.PrintError(os.Stderr, err)
			continue
		}
		cmdutils.PrintWorkflow(os.Stderr, res.Workflow)
		cmdutils.PrintResponse(os.Stdout, res.Reply)
	}
}

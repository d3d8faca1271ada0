package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/riskpilot/riskpilot/internal/container"
	"github.com/riskpilot/riskpilot/internal/toolspec"
	"github.com/riskpilot/riskpilot/internal/workflow"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the remote tools and the argument specs bound to the model",
	RunE:  runTools,
}

func runTools(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig("")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	c, err := container.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	descs, err := c.Gateway().ListTools(ctx)
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}

	fmt.Printf("%s %d remote tool(s)\n\n", logo, len(descs))
	bindings := toolspec.NewBindings()
	remote := make(map[string]toolspec.ArgumentSpec, len(descs))
	for _, d := range descs {
		spec := toolspec.FromDescriptor(d)
		remote[d.Name] = spec
		fmt.Printf("%s  [%s]  → %s\n", d.Name, d.Server, bindings.Bind(d.Name))
		if desc := firstLine(d.Description); desc != "" {
			fmt.Printf("  %s\n", desc)
		}
		printArgs(spec)
		fmt.Println()
	}

	if eng, ok := c.Engine().(*workflow.Engine); ok {
		fmt.Println("Workflow models:")
		for _, m := range eng.Catalog().Models() {
			fmt.Printf("%s (%s) → %s %s\n", m.Intent, m.Display, m.Tool, remoteStatus(remote, m))
			printArgs(m.ExtractionSpec())
		}
	}
	return nil
}

// remoteStatus reports whether the registry serves the model's tool with the
// argument the workflow wraps patient data in.
func remoteStatus(remote map[string]toolspec.ArgumentSpec, m workflow.Model) string {
	spec, ok := remote[m.Tool]
	if !ok {
		return "✗ (not in registry)"
	}
	if spec.IsFallback() {
		return "✓"
	}
	if _, ok := spec.Arg(m.Argument); !ok {
		return fmt.Sprintf("✗ (no %q argument)", m.Argument)
	}
	return "✓"
}

func printArgs(spec toolspec.ArgumentSpec) {
	if spec.IsFallback() {
		fmt.Println("  (no usable schema, free-form payload)")
	}
	for _, a := range spec.Args {
		req := "optional"
		if a.Required {
			req = "required"
		}
		typ := string(a.Type)
		if a.Type == toolspec.TypeList && a.Items != "" {
			typ += "<" + string(a.Items) + ">"
		}
		fmt.Printf("  - %-24s %-14s %s\n", a.Name, typ, req)
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/riskpilot/riskpilot/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored sessions, newest first",
	RunE:  runSessions,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a stored session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}

// openSessions opens the configured session store without building the rest
// of the agent, so no provider credentials are needed.
func openSessions(ctx context.Context) (session.Store, error) {
	cfg, err := loadConfig("")
	if err != nil {
		return nil, err
	}
	st, err := session.OpenStore(ctx, cfg.Session.Backend, cfg.SessionDSN())
	if err != nil {
		return nil, fmt.Errorf("open %s session store: %w", cfg.Session.Backend, err)
	}
	return st, nil
}

func runSessions(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	st, err := openSessions(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	infos, err := st.List(ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No sessions stored.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tMESSAGES\tUPDATED\tCREATED")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			info.Key, info.Messages,
			info.UpdatedAt.Local().Format("2006-01-02 15:04"),
			info.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func runSessionsDelete(_ *cobra.Command, args []string) error {
	ctx := context.Background()
	st, err := openSessions(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("✓ Deleted session %s\n", args[0])
	return nil
}

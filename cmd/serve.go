package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/riskpilot/riskpilot/internal/container"
	"github.com/riskpilot/riskpilot/internal/server"
)

var (
	servePort int
	serveMode string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (default from config)")
	serveCmd.Flags().StringVar(&serveMode, "mode", "", "Override the agent mode (chat or workflow)")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig(serveMode)
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Gateway.Port = servePort
	}

	// Graceful shutdown context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	addr := net.JoinHostPort(cfg.Gateway.Host, strconv.Itoa(cfg.Gateway.Port))
	srv := server.New(c.Service(), addr)

	fmt.Printf("%s Starting riskpilot (%s mode) on %s...\n", logo, cfg.Agents.Defaults.Mode, addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(gctx) })
	g.Go(func() error {
		// Warm up the MCP sessions.
		if err := c.Gateway().Connect(gctx); err != nil {
			slog.Warn("MCP servers unavailable at startup", "err", err)
		}
		return nil
	})

	fmt.Printf("%s Server running. Press Ctrl+C to stop.\n", logo)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server: %w", err)
	}
	fmt.Println("\nShutdown complete.")
	return nil
}

package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpTransport "github.com/kailas-cloud/healthrag/internal/transport/mcp"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the ask_health_question tool over MCP stdio",
		Long: `Starts a Model Context Protocol server on stdin/stdout exposing the
ask_health_question tool. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p, err := loadPipeline(ctx, a)
			if err != nil {
				return err
			}
			defer p.Close()

			srv, err := mcpTransport.NewServer(p.answers, a.logger)
			if err != nil {
				return fmt.Errorf("create mcp server: %w", err)
			}
			return srv.Run(ctx) //nolint:wrapcheck // already wrapped
		},
	}
}

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pagebuilder/internal/app"
	mcpserver "pagebuilder/internal/mcp"
)

// serveMCPCmd runs the app as a standalone MCP server on stdin/stdout.
var serveMCPCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Serve the page builder to AI agents over MCP (stdio)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a := app.New(cfg, logger.Named("app"))
		if err := a.Startup(ctx); err != nil {
			return err
		}
		defer a.Shutdown()

		srv := mcpserver.New(mcpserver.Deps{App: a, Logger: logger.Named("mcp")})
		return srv.ServeStdio()
	},
}

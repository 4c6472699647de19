package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/awantoch/scriptflow/constants"
	"github.com/awantoch/scriptflow/mcp"
	"github.com/awantoch/scriptflow/parser"
)

// newMCPCmd creates the 'mcp' command group.
func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   constants.CmdMCP,
		Short: constants.DescMCP,
	}
	cmd.AddCommand(newMCPServeCmd())
	return cmd
}

func newMCPServeCmd() *cobra.Command {
	var stdio bool
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve scriptflow tools over MCP",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			p, err := parser.New(cfg.Parser)
			if err != nil {
				fail(1, "Failed to create parser: %v", err)
				return
			}
			tools, err := mcp.NewToolset(p, cfg.Layout)
			if err != nil {
				fail(1, "Invalid layout config: %v", err)
				return
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := mcp.Serve(ctx, debug, stdio, addr, tools.Registrations()); err != nil {
				fail(1, "MCP server failed: %v", err)
			}
		},
	}
	cmd.Flags().BoolVar(&stdio, "stdio", true, "serve over stdin/stdout")
	cmd.Flags().StringVar(&addr, "addr", ":9090", "listen address when not using stdio")
	return cmd
}

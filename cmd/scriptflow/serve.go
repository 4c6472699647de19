package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/awantoch/scriptflow/constants"
	"github.com/awantoch/scriptflow/event"
	sfhttp "github.com/awantoch/scriptflow/http"
	"github.com/awantoch/scriptflow/telemetry"
	"github.com/awantoch/scriptflow/utils"
)

// newServeCmd creates the 'serve' subcommand.
func newServeCmd() *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   constants.CmdServe,
		Short: constants.DescServe,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			if host != "" {
				cfg.HTTP.Host = host
			}
			if port != 0 {
				cfg.HTTP.Port = port
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdown, err := telemetry.Init(cfg)
			if err != nil {
				fail(1, "Failed to initialize tracing: %v", err)
				return
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					utils.Warn("tracing shutdown: %v", err)
				}
			}()

			bus, err := event.NewEventBusFromConfig(&cfg.Event)
			if err != nil {
				fail(1, "Failed to create event bus: %v", err)
				return
			}
			defer bus.Close()

			srv, err := sfhttp.NewServer(cfg, sfhttp.WithEventBus(bus))
			if err != nil {
				fail(1, "Failed to create server: %v", err)
				return
			}
			utils.User("scriptflow serving on http://%s", srv.Addr())
			if err := srv.Start(ctx); err != nil {
				fail(1, "Server failed: %v", err)
			}
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config and "+constants.EnvPort+")")
	return cmd
}

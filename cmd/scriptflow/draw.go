package main

import (
	"github.com/spf13/cobra"

	"github.com/awantoch/scriptflow/constants"
	"github.com/awantoch/scriptflow/event"
	"github.com/awantoch/scriptflow/session"
	"github.com/awantoch/scriptflow/utils"
)

// newDrawCmd creates the 'draw' subcommand, a terminal stand-in for the
// browser editor: it submits a script to a running service and prints the
// resulting flow.
func newDrawCmd() *cobra.Command {
	var endpoint, strategy string
	cmd := &cobra.Command{
		Use:   constants.CmdDraw + " [script-file]",
		Short: constants.DescDraw,
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			a, ok := assignerFromFlags(cfg.Layout, strategy)
			if !ok {
				return
			}
			script, err := readInput(cmd, args)
			if err != nil {
				fail(1, "Failed to read script: %v", err)
				return
			}

			bus := event.NewInProcEventBus()
			defer bus.Close()
			if err := bus.Subscribe(cmd.Context(), constants.TopicSessionState, func(payload any) {
				utils.Debug("session state: %v", payload)
			}); err != nil {
				utils.Warn("session events unavailable: %v", err)
			}

			s := session.New(session.NewClient(endpoint, nil), session.WithAssigner(a), session.WithEventBus(bus))
			pg, err := s.Submit(cmd.Context(), string(script))
			if err != nil {
				fail(1, "%s", s.Snapshot().Message)
				return
			}
			if err := printJSON(pg); err != nil {
				fail(1, "Failed to encode flow: %v", err)
			}
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", constants.DefaultParseEndpoint, "base URL of the scriptflow service")
	cmd.Flags().StringVar(&strategy, "strategy", "", "layout strategy: id-bucket or layered (overrides config)")
	return cmd
}

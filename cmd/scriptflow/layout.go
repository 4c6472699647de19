package main

import (
	"github.com/spf13/cobra"

	"github.com/awantoch/scriptflow/config"
	"github.com/awantoch/scriptflow/constants"
	"github.com/awantoch/scriptflow/layout"
	"github.com/awantoch/scriptflow/model"
)

// newLayoutCmd creates the 'layout' subcommand.
func newLayoutCmd() *cobra.Command {
	var strategy string
	cmd := &cobra.Command{
		Use:   constants.CmdLayout + " [graph-file]",
		Short: constants.DescLayout,
		Long:  "Reads a flow graph (JSON or YAML) and prints it with node positions and edge ids.",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			a, ok := assignerFromFlags(cfg.Layout, strategy)
			if !ok {
				return
			}
			data, err := readInput(cmd, args)
			if err != nil {
				fail(1, "Failed to read graph: %v", err)
				return
			}
			g, err := model.DecodeGraph(data)
			if err != nil {
				fail(1, "Invalid graph: %v", err)
				return
			}
			if err := printJSON(a.Layout(g)); err != nil {
				fail(1, "Failed to encode layout: %v", err)
			}
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "", "layout strategy: id-bucket or layered (overrides config)")
	return cmd
}

// assignerFromFlags builds the assigner for --strategy, or the configured one.
func assignerFromFlags(cfg config.LayoutConfig, strategy string) (*layout.Assigner, bool) {
	a, err := layout.FromConfig(cfg, strategy)
	if err != nil {
		fail(1, "%v", err)
		return nil, false
	}
	return a, true
}

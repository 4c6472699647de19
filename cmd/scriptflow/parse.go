package main

import (
	"github.com/spf13/cobra"

	"github.com/awantoch/scriptflow/constants"
	"github.com/awantoch/scriptflow/parser"
)

// newParseCmd creates the 'parse' subcommand.
func newParseCmd() *cobra.Command {
	var driver string
	cmd := &cobra.Command{
		Use:   constants.CmdParse + " [script-file]",
		Short: constants.DescParse,
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			if driver != "" {
				cfg.Parser.Driver = driver
			}
			script, err := readInput(cmd, args)
			if err != nil {
				fail(1, "Failed to read script: %v", err)
				return
			}
			p, err := parser.New(cfg.Parser)
			if err != nil {
				fail(1, "Failed to create parser: %v", err)
				return
			}
			g, err := p.Parse(cmd.Context(), string(script))
			if err != nil {
				fail(1, "Parse failed: %v", err)
				return
			}
			if err := printJSON(g); err != nil {
				fail(1, "Failed to encode graph: %v", err)
			}
		},
	}
	cmd.Flags().StringVar(&driver, "parser", "", "parser driver: rules or openai (overrides config)")
	return cmd
}

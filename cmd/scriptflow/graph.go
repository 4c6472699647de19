package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/awantoch/scriptflow/blob"
	"github.com/awantoch/scriptflow/config"
	"github.com/awantoch/scriptflow/constants"
	"github.com/awantoch/scriptflow/graph"
	"github.com/awantoch/scriptflow/graphviz"
	"github.com/awantoch/scriptflow/model"
	"github.com/awantoch/scriptflow/parser"
	"github.com/awantoch/scriptflow/utils"
)

// newGraphCmd creates the 'graph' subcommand.
func newGraphCmd() *cobra.Command {
	var (
		format    string
		output    string
		strategy  string
		fromGraph bool
		upload    bool
	)
	cmd := &cobra.Command{
		Use:   constants.CmdGraph + " [file]",
		Short: constants.DescGraph,
		Long: "Renders a script (or, with --from-graph, a JSON/YAML flow graph) as a diagram.\n" +
			"Mermaid text goes to stdout unless --output is set; images need --output or --upload.",
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			imageFormat, isImage := graphviz.ParseFormat(format)
			if format != "mermaid" && !isImage {
				fail(1, "Unknown diagram format: %s", format)
				return
			}
			if isImage && output == "" && !upload {
				fail(1, "--output or --upload is required for %s output", format)
				return
			}
			a, ok := assignerFromFlags(cfg.Layout, strategy)
			if !ok {
				return
			}
			data, err := readInput(cmd, args)
			if err != nil {
				fail(1, "Failed to read input: %v", err)
				return
			}
			g, err := rawGraphFrom(cmd, cfg, data, fromGraph)
			if err != nil {
				fail(1, "%v", err)
				return
			}
			pg := a.Layout(g)

			var out []byte
			mime := constants.ContentTypeTextVndMermaid
			if isImage {
				out, err = graphviz.Render(cmd.Context(), pg, imageFormat)
				if imageFormat == graphviz.FormatPNG {
					mime = constants.ContentTypePNG
				} else {
					mime = constants.ContentTypeSVG
				}
			} else {
				var s string
				s, err = graph.ExportMermaid(pg)
				out = []byte(s)
			}
			if err != nil {
				fail(1, "Failed to render diagram: %v", err)
				return
			}

			switch {
			case output != "":
				if err := os.WriteFile(output, out, 0o644); err != nil {
					fail(1, "Failed to write %s: %v", output, err)
					return
				}
				utils.Info("Wrote %s", output)
			case !upload:
				utils.User("%s", out)
			}

			if upload {
				store, err := blob.NewBlobStoreFromConfig(cmd.Context(), &cfg.Blob)
				if err != nil {
					fail(1, "Failed to open blob store: %v", err)
					return
				}
				url, err := store.Put(cmd.Context(), out, mime, "flow."+format)
				if err != nil {
					fail(1, "Upload failed: %v", err)
					return
				}
				utils.User("%s", url)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "mermaid", "diagram format: mermaid, svg or png")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the diagram to this file")
	cmd.Flags().StringVar(&strategy, "strategy", "", "layout strategy: id-bucket or layered (overrides config)")
	cmd.Flags().BoolVar(&fromGraph, "from-graph", false, "treat input as a JSON/YAML flow graph instead of a script")
	cmd.Flags().BoolVar(&upload, "upload", false, "store the diagram in the configured blob store and print its URL")
	return cmd
}

// rawGraphFrom decodes data as a graph, or parses it as a script.
func rawGraphFrom(cmd *cobra.Command, cfg *config.Config, data []byte, isGraph bool) (*model.RawGraph, error) {
	if isGraph {
		g, err := model.DecodeGraph(data)
		if err != nil {
			return nil, utils.Errorf("invalid graph: %w", err)
		}
		return g, nil
	}
	p, err := parser.New(cfg.Parser)
	if err != nil {
		return nil, err
	}
	return p.Parse(cmd.Context(), string(data))
}

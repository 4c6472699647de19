// Package graphviz draws positioned flows as SVG or PNG images. Nodes are
// pinned at their computed positions so the picture matches the layout.
package graphviz

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/awantoch/scriptflow/model"
)

type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// pointsPerInch converts layout units (treated as points) to the inches
// graphviz expects in pos.
const pointsPerInch = 72.0

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(name string) (Format, bool) {
	switch Format(strings.ToLower(name)) {
	case FormatSVG:
		return FormatSVG, true
	case FormatPNG:
		return FormatPNG, true
	}
	return "", false
}

// Render draws pg in format. Edges that reference unknown nodes are skipped.
func Render(ctx context.Context, pg *model.PositionedGraph, format Format) ([]byte, error) {
	var gvFormat graphviz.Format
	switch format {
	case FormatSVG:
		gvFormat = graphviz.SVG
	case FormatPNG:
		gvFormat = graphviz.PNG
	default:
		return nil, fmt.Errorf("unsupported image format: %s", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("graphviz: create: %w", err)
	}
	defer gv.Close()
	// neato honours pinned node positions; dot would re-rank them.
	gv.SetLayout(graphviz.NEATO)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("graphviz: create graph: %w", err)
	}
	defer graph.Close()

	if pg != nil {
		if err := build(graph, pg); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, gvFormat, &buf); err != nil {
		return nil, fmt.Errorf("graphviz: render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

func build(graph *cgraph.Graph, pg *model.PositionedGraph) error {
	nodes := make(map[string]*cgraph.Node, len(pg.Nodes))
	for _, n := range pg.Nodes {
		if _, dup := nodes[n.ID]; dup {
			continue
		}
		gvNode, err := graph.CreateNodeByName(n.ID)
		if err != nil {
			return fmt.Errorf("graphviz: create node %s: %w", n.ID, err)
		}
		gvNode.SetLabel(n.Label)
		applyShape(gvNode, n.Type)
		if err := gvNode.SafeSet("pos", pinnedPos(n.Position), ""); err != nil {
			return fmt.Errorf("graphviz: position node %s: %w", n.ID, err)
		}
		nodes[n.ID] = gvNode
	}
	for _, e := range pg.Edges {
		from, to := nodes[e.Source], nodes[e.Target]
		if from == nil || to == nil {
			continue
		}
		gvEdge, err := graph.CreateEdgeByName(e.ID, from, to)
		if err != nil {
			return fmt.Errorf("graphviz: create edge %s: %w", e.ID, err)
		}
		if e.Label != "" {
			gvEdge.SetLabel(e.Label)
		}
	}
	return nil
}

func applyShape(n *cgraph.Node, t model.NodeType) {
	switch t {
	case model.NodeStart:
		n.SetShape(cgraph.CircleShape)
	case model.NodeDecision:
		n.SetShape(cgraph.DiamondShape)
	default:
		n.SetShape(cgraph.BoxShape)
	}
}

// pinnedPos formats p as a fixed graphviz position. Graphviz's y axis points
// up, layout's points down.
func pinnedPos(p model.Position) string {
	return fmt.Sprintf("%g,%g!", p.X/pointsPerInch, 0-p.Y/pointsPerInch)
}

// Package layout turns a parsed flow graph into display-ready geometry.
//
// Layout is a pure function of its input: the same graph always yields the
// same positions and edge ids. An Assigner holds only its options and may be
// shared between goroutines.
package layout

import (
	"strconv"

	"github.com/awantoch/scriptflow/model"
)

// Strategy selects how node positions are derived.
type Strategy string

const (
	// StrategyIDBucket places nodes by type and the digits embedded in their id.
	StrategyIDBucket Strategy = "id-bucket"
	// StrategyLayered places nodes on breadth-first levels from the start node.
	StrategyLayered Strategy = "layered"
)

// EdgeSeparator joins source and target ids into an edge id.
const EdgeSeparator = "->"

const (
	DefaultSiblingSpacing = 200
	DefaultLevelSpacing   = 100
)

// Options configures an Assigner. Zero values fall back to the defaults.
type Options struct {
	Strategy       Strategy
	SiblingSpacing float64
	LevelSpacing   float64
}

// Assigner computes positions for nodes and display attributes for edges.
type Assigner struct {
	opts Options
}

// New creates an Assigner with the given options.
func New(opts Options) *Assigner {
	if opts.Strategy == "" {
		opts.Strategy = StrategyIDBucket
	}
	if opts.SiblingSpacing <= 0 {
		opts.SiblingSpacing = DefaultSiblingSpacing
	}
	if opts.LevelSpacing <= 0 {
		opts.LevelSpacing = DefaultLevelSpacing
	}
	return &Assigner{opts: opts}
}

// ParseStrategy maps a user-supplied name to a Strategy. Unknown names are reported.
func ParseStrategy(name string) (Strategy, bool) {
	switch Strategy(name) {
	case "", StrategyIDBucket:
		return StrategyIDBucket, true
	case StrategyLayered:
		return StrategyLayered, true
	}
	return "", false
}

var defaultAssigner = New(Options{})

// Layout positions g with the default id-bucket strategy.
func Layout(g *model.RawGraph) *model.PositionedGraph {
	return defaultAssigner.Layout(g)
}

// Strategy reports the strategy this Assigner uses.
func (a *Assigner) Strategy() Strategy {
	return a.opts.Strategy
}

// Layout returns a positioned copy of g. A nil graph is treated as empty.
// Output nodes and edges keep the order and count of the input.
func (a *Assigner) Layout(g *model.RawGraph) *model.PositionedGraph {
	if g == nil {
		g = &model.RawGraph{}
	}
	var positions []model.Position
	switch a.opts.Strategy {
	case StrategyLayered:
		positions = a.layered(g)
	default:
		positions = bucketPositions(g.Nodes)
	}

	out := model.NewPositionedGraph(len(g.Nodes), len(g.Edges))
	for i, n := range g.Nodes {
		out.Nodes = append(out.Nodes, model.PositionedNode{
			ID:            n.ID,
			Type:          n.Type,
			Label:         n.Label,
			Position:      positions[i],
			VisualVariant: model.VisualDefault,
			Data:          model.NodeData{Label: n.Label},
		})
	}
	out.Edges = append(out.Edges, displayEdges(g.Edges)...)
	return out
}

// displayEdges builds edge ids from source and target. A repeated pair gets a
// "#n" suffix so every id in the result is unique.
func displayEdges(edges []model.RawEdge) []model.DisplayEdge {
	out := make([]model.DisplayEdge, 0, len(edges))
	used := make(map[string]bool, len(edges))
	for _, e := range edges {
		base := e.Source + EdgeSeparator + e.Target
		id := base
		for n := 2; used[id]; n++ {
			id = base + "#" + strconv.Itoa(n)
		}
		used[id] = true
		out = append(out, model.DisplayEdge{
			ID:     id,
			Source: e.Source,
			Target: e.Target,
			Label:  e.Condition,
		})
	}
	return out
}

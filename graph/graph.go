package graph

import (
	"fmt"
	"strings"

	"github.com/awantoch/scriptflow/model"
)

// Node is a vertex in the graph.
type Node struct {
	ID    string
	Label string
	Type  model.NodeType
}

// Edge is a directed connection between two nodes.
type Edge struct {
	From  string
	To    string
	Label string
}

// Graph is a directed graph composed of nodes and edges.
type Graph struct {
	Nodes []*Node
	Edges []*Edge
}

// Renderer renders a Graph into a specific output format.
type Renderer interface {
	Render(g *Graph) (string, error)
}

// MermaidRenderer outputs Graphs in Mermaid flowchart syntax.
type MermaidRenderer struct{}

// NewGraph creates a Graph from a positioned flow. Positions are dropped;
// Mermaid computes its own.
func NewGraph(pg *model.PositionedGraph) *Graph {
	g := &Graph{}
	if pg == nil {
		return g
	}
	for _, n := range pg.Nodes {
		g.Nodes = append(g.Nodes, &Node{ID: n.ID, Label: n.Label, Type: n.Type})
	}
	for _, e := range pg.Edges {
		g.Edges = append(g.Edges, &Edge{From: e.Source, To: e.Target, Label: e.Label})
	}
	return g
}

// Render renders the graph using Mermaid syntax.
func (r *MermaidRenderer) Render(g *Graph) (string, error) {
	if g == nil || len(g.Nodes) == 0 {
		return "", nil
	}
	ids := newIDMap()
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	for _, node := range g.Nodes {
		sb.WriteString(nodeDef(ids.get(node.ID), node))
		sb.WriteByte('\n')
	}
	for _, edge := range g.Edges {
		from, to := ids.get(edge.From), ids.get(edge.To)
		if edge.Label != "" {
			sb.WriteString(fmt.Sprintf("%s -->|%s| %s\n", from, escapeLabel(edge.Label), to))
		} else {
			sb.WriteString(fmt.Sprintf("%s --> %s\n", from, to))
		}
	}
	return sb.String(), nil
}

// nodeDef picks the node shape from its type: circle for start, rhombus for
// decision, rectangle for everything else.
func nodeDef(id string, n *Node) string {
	label := `"` + escapeLabel(n.Label) + `"`
	switch n.Type {
	case model.NodeStart:
		return fmt.Sprintf("%s((%s))", id, label)
	case model.NodeDecision:
		return fmt.Sprintf("%s{%s}", id, label)
	default:
		return fmt.Sprintf("%s[%s]", id, label)
	}
}

// safeID maps an id onto Mermaid's identifier alphabet.
func safeID(id string) string {
	if id == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

// idMap hands out Mermaid ids so that distinct ids which sanitize to the same
// text (a-b, a_b) stay distinct nodes.
type idMap struct {
	byID  map[string]string
	taken map[string]bool
}

func newIDMap() *idMap {
	return &idMap{byID: map[string]string{}, taken: map[string]bool{}}
}

func (m *idMap) get(id string) string {
	if out, ok := m.byID[id]; ok {
		return out
	}
	base := safeID(id)
	out := base
	for n := 2; m.taken[out]; n++ {
		out = fmt.Sprintf("%s_%d", base, n)
	}
	m.byID[id] = out
	m.taken[out] = true
	return out
}

var labelEscaper = strings.NewReplacer(`"`, "#quot;", "|", "#124;", "\n", " ", "\r", "")

func escapeLabel(s string) string {
	return labelEscaper.Replace(s)
}

// ExportMermaid renders a positioned flow as a Mermaid flowchart.
func ExportMermaid(pg *model.PositionedGraph) (string, error) {
	return (&MermaidRenderer{}).Render(NewGraph(pg))
}

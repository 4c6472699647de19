package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awantoch/scriptflow/layout"
	"github.com/awantoch/scriptflow/model"
)

func TestExportMermaid_Shapes(t *testing.T) {
	pg := layout.Layout(&model.RawGraph{
		Nodes: []model.RawNode{
			{ID: "start", Type: model.NodeStart, Label: "Start"},
			{ID: "decision0", Type: model.NodeDecision, Label: "user wants sales"},
			{ID: "action_2", Type: model.NodeAction, Label: "transfer"},
			{ID: "n-4", Type: "hangup", Label: `say "bye"`},
		},
		Edges: []model.RawEdge{
			{Source: "start", Target: "decision0"},
			{Source: "decision0", Target: "action_2", Condition: "yes | sure"},
			{Source: "action_2", Target: "n-4"},
		},
	})

	out, err := ExportMermaid(pg)
	require.NoError(t, err)
	want := strings.Join([]string{
		"graph TD",
		`start(("Start"))`,
		`decision0{"user wants sales"}`,
		`action_2["transfer"]`,
		`n_4["say #quot;bye#quot;"]`,
		"start --> decision0",
		"decision0 -->|yes #124; sure| action_2",
		"action_2 --> n_4",
		"",
	}, "\n")
	assert.Equal(t, want, out)
}

func TestExportMermaid_Empty(t *testing.T) {
	out, err := ExportMermaid(nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = ExportMermaid(layout.Layout(nil))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestNewGraph_KeepsOrder(t *testing.T) {
	pg := model.NewPositionedGraph(2, 1)
	pg.Nodes = append(pg.Nodes, model.PositionedNode{ID: "b"}, model.PositionedNode{ID: "a"})
	pg.Edges = append(pg.Edges, model.DisplayEdge{ID: "b->a", Source: "b", Target: "a", Label: "go"})
	g := NewGraph(pg)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "b", g.Nodes[0].ID)
	assert.Equal(t, &Edge{From: "b", To: "a", Label: "go"}, g.Edges[0])
}

func TestSafeID(t *testing.T) {
	assert.Equal(t, "a_b_c", safeID("a.b c"))
	assert.Equal(t, "_", safeID(""))
	assert.Equal(t, "x9_", safeID("x9_"))
}

func TestExportMermaid_CollidingIDsStayDistinct(t *testing.T) {
	pg := layout.Layout(&model.RawGraph{
		Nodes: []model.RawNode{
			{ID: "a-b", Type: model.NodeAction, Label: "first"},
			{ID: "a_b", Type: model.NodeAction, Label: "second"},
			{ID: "a b", Type: model.NodeAction, Label: "third"},
		},
		Edges: []model.RawEdge{
			{Source: "a-b", Target: "a_b"},
			{Source: "a_b", Target: "a b"},
		},
	})

	out, err := ExportMermaid(pg)
	require.NoError(t, err)
	want := strings.Join([]string{
		"graph TD",
		`a_b["first"]`,
		`a_b_2["second"]`,
		`a_b_3["third"]`,
		"a_b --> a_b_2",
		"a_b_2 --> a_b_3",
		"",
	}, "\n")
	assert.Equal(t, want, out)
}

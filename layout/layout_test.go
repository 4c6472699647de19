package layout

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awantoch/scriptflow/config"
	"github.com/awantoch/scriptflow/constants"
	"github.com/awantoch/scriptflow/model"
)

func TestLayout_PlacementBranches(t *testing.T) {
	tests := []struct {
		name string
		node model.RawNode
		want model.Position
	}{
		{"start", model.RawNode{ID: "n1", Type: model.NodeStart, Label: "Begin"}, model.Position{X: 0, Y: 0}},
		{"decision", model.RawNode{ID: "n2", Type: model.NodeDecision, Label: "Wants sales?"}, model.Position{X: 400, Y: 60}},
		{"action", model.RawNode{ID: "n3", Type: model.NodeAction, Label: "Transfer"}, model.Position{X: 400, Y: 180}},
		{"action without digits", model.RawNode{ID: "abc", Type: model.NodeAction, Label: "No digits"}, model.Position{X: 400, Y: 60}},
		{"unknown type falls back to action", model.RawNode{ID: "n4", Type: "hangup", Label: "Bye"}, model.Position{X: 400, Y: 240}},
		{"zero digits count as one", model.RawNode{ID: "decision0", Type: model.NodeDecision}, model.Position{X: 200, Y: 60}},
		{"scattered digits join", model.RawNode{ID: "a1_b2", Type: model.NodeAction}, model.Position{X: 400, Y: 720}},
		{"start ignores digits", model.RawNode{ID: "start99", Type: model.NodeStart}, model.Position{X: 0, Y: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Layout(&model.RawGraph{Nodes: []model.RawNode{tt.node}})
			require.Len(t, out.Nodes, 1)
			n := out.Nodes[0]
			assert.Equal(t, tt.want, n.Position)
			assert.Equal(t, tt.node.ID, n.ID)
			assert.Equal(t, tt.node.Type, n.Type)
			assert.Equal(t, tt.node.Label, n.Label)
			assert.Equal(t, tt.node.Label, n.Data.Label)
			assert.Equal(t, model.VisualDefault, n.VisualVariant)
		})
	}
}

func TestLayout_HugeDigitRunFallsBackToOne(t *testing.T) {
	id := "n"
	for i := 0; i < 400; i++ {
		id += "9"
	}
	out := Layout(&model.RawGraph{Nodes: []model.RawNode{{ID: id, Type: model.NodeAction}}})
	assert.Equal(t, model.Position{X: 400, Y: 60}, out.Nodes[0].Position)
	_, err := json.Marshal(out)
	require.NoError(t, err)
}

func TestLayout_EdgeLabels(t *testing.T) {
	g := &model.RawGraph{Edges: []model.RawEdge{
		{Source: "n1", Target: "n2"},
		{Source: "n1", Target: "n3", Condition: "wants support"},
	}}
	out := Layout(g)
	require.Len(t, out.Edges, 2)
	assert.Equal(t, model.DisplayEdge{ID: "n1->n2", Source: "n1", Target: "n2", Label: ""}, out.Edges[0])
	assert.Equal(t, model.DisplayEdge{ID: "n1->n3", Source: "n1", Target: "n3", Label: "wants support"}, out.Edges[1])
}

func TestLayout_DuplicateEdgePairsGetUniqueIDs(t *testing.T) {
	g := &model.RawGraph{Edges: []model.RawEdge{
		{Source: "a", Target: "b", Condition: "yes"},
		{Source: "a", Target: "b", Condition: "maybe"},
		{Source: "a", Target: "b#2"},
		{Source: "a", Target: "b"},
	}}
	out := Layout(g)
	ids := make(map[string]bool)
	for _, e := range out.Edges {
		assert.False(t, ids[e.ID], "duplicate id %s", e.ID)
		ids[e.ID] = true
	}
	assert.Equal(t, "a->b", out.Edges[0].ID)
	assert.Equal(t, "a->b#2", out.Edges[1].ID)
	assert.Equal(t, "a->b#2#2", out.Edges[2].ID)
	assert.Equal(t, "a->b#3", out.Edges[3].ID)
	assert.Equal(t, "maybe", out.Edges[1].Label)
}

func TestLayout_DanglingEdgesPassThrough(t *testing.T) {
	g := &model.RawGraph{
		Nodes: []model.RawNode{{ID: "n1", Type: model.NodeStart}},
		Edges: []model.RawEdge{{Source: "n1", Target: "ghost"}},
	}
	out := Layout(g)
	require.Len(t, out.Edges, 1)
	assert.Equal(t, "ghost", out.Edges[0].Target)
}

func TestLayout_EmptyGraph(t *testing.T) {
	for _, g := range []*model.RawGraph{nil, {}, {Nodes: []model.RawNode{}, Edges: []model.RawEdge{}}} {
		out := Layout(g)
		require.NotNil(t, out.Nodes)
		require.NotNil(t, out.Edges)
		assert.Empty(t, out.Nodes)
		assert.Empty(t, out.Edges)
	}
}

func TestLayout_DecodedMissingKeys(t *testing.T) {
	g, err := model.DecodeGraph([]byte(`{}`))
	require.NoError(t, err)
	b, err := json.Marshal(Layout(g))
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[],"edges":[]}`, string(b))
}

func TestLayout_Determinism(t *testing.T) {
	g := sampleGraph()
	for _, s := range []Strategy{StrategyIDBucket, StrategyLayered} {
		a := New(Options{Strategy: s})
		first, err := json.Marshal(a.Layout(g))
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			again, err := json.Marshal(a.Layout(g))
			require.NoError(t, err)
			assert.Equal(t, string(first), string(again), "strategy %s", s)
		}
	}
}

func TestLayout_PreservesOrderAndCardinality(t *testing.T) {
	g := sampleGraph()
	for _, s := range []Strategy{StrategyIDBucket, StrategyLayered} {
		out := New(Options{Strategy: s}).Layout(g)
		require.Len(t, out.Nodes, len(g.Nodes))
		require.Len(t, out.Edges, len(g.Edges))
		for i, n := range g.Nodes {
			assert.Equal(t, n.ID, out.Nodes[i].ID)
			assert.Equal(t, n.Label, out.Nodes[i].Label)
		}
		for i, e := range g.Edges {
			assert.Equal(t, e.Source, out.Edges[i].Source)
			assert.Equal(t, e.Target, out.Edges[i].Target)
		}
	}
}

func TestLayout_DoesNotMutateInput(t *testing.T) {
	g := sampleGraph()
	before, err := json.Marshal(g)
	require.NoError(t, err)
	New(Options{Strategy: StrategyLayered}).Layout(g)
	Layout(g)
	after, err := json.Marshal(g)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestLayout_ConcurrentCalls(t *testing.T) {
	g := sampleGraph()
	want, err := json.Marshal(Layout(g))
	require.NoError(t, err)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := json.Marshal(Layout(g))
			assert.NoError(t, err)
			assert.Equal(t, string(want), string(got))
		}()
	}
	wg.Wait()
}

// The sample conversation: a greeting decision that branches to sales,
// support or a polite fallback.
func TestLayout_SalesSupportGreetScenario(t *testing.T) {
	out := Layout(sampleGraph())
	seen := make(map[model.Position]string)
	for _, n := range out.Nodes {
		if n.Type != model.NodeAction {
			continue
		}
		if other, ok := seen[n.Position]; ok {
			t.Fatalf("actions %s and %s share position %+v", other, n.ID, n.Position)
		}
		seen[n.Position] = n.ID
	}
	assert.Len(t, seen, 3)

	var fromDecision int
	for _, e := range out.Edges {
		if e.Source == "n2" {
			fromDecision++
			assert.NotEmpty(t, e.Label)
		}
	}
	assert.Equal(t, 3, fromDecision)
}

func TestParseStrategy(t *testing.T) {
	s, ok := ParseStrategy("")
	assert.True(t, ok)
	assert.Equal(t, StrategyIDBucket, s)
	s, ok = ParseStrategy("layered")
	assert.True(t, ok)
	assert.Equal(t, StrategyLayered, s)
	_, ok = ParseStrategy("force")
	assert.False(t, ok)
}

func TestNew_Defaults(t *testing.T) {
	a := New(Options{})
	assert.Equal(t, StrategyIDBucket, a.Strategy())
	assert.Equal(t, float64(DefaultSiblingSpacing), a.opts.SiblingSpacing)
	assert.Equal(t, float64(DefaultLevelSpacing), a.opts.LevelSpacing)
}

func sampleGraph() *model.RawGraph {
	return &model.RawGraph{
		Nodes: []model.RawNode{
			{ID: "n1", Type: model.NodeStart, Label: "Start"},
			{ID: "n2", Type: model.NodeDecision, Label: "What does the user want?"},
			{ID: "n3", Type: model.NodeAction, Label: "transfer"},
			{ID: "n4", Type: model.NodeAction, Label: "ask for ticket number"},
			{ID: "n5", Type: model.NodeAction, Label: "greet politely"},
		},
		Edges: []model.RawEdge{
			{Source: "n1", Target: "n2"},
			{Source: "n2", Target: "n3", Condition: "wants sales"},
			{Source: "n2", Target: "n4", Condition: "wants support"},
			{Source: "n2", Target: "n5", Condition: "otherwise"},
		},
	}
}

func TestFromConfig(t *testing.T) {
	a, err := FromConfig(config.LayoutConfig{Strategy: "layered", SiblingSpacing: 50}, "")
	require.NoError(t, err)
	assert.Equal(t, StrategyLayered, a.Strategy())
	assert.Equal(t, 50.0, a.opts.SiblingSpacing)
	assert.Equal(t, float64(DefaultLevelSpacing), a.opts.LevelSpacing)

	a, err = FromConfig(config.LayoutConfig{Strategy: "layered", LevelSpacing: 80}, "id-bucket")
	require.NoError(t, err)
	assert.Equal(t, StrategyIDBucket, a.Strategy())
	assert.Equal(t, 80.0, a.opts.LevelSpacing)

	_, err = FromConfig(config.LayoutConfig{}, "force")
	assert.EqualError(t, err, constants.ResponseUnknownStrategy+": force")
}

package layout

import (
	"github.com/awantoch/scriptflow/model"
)

// layered assigns each node a breadth-first level starting from the roots and
// spreads every level horizontally around x=0. Nodes not reachable from the
// roots are leveled from the first unvisited node, below everything placed so far.
func (a *Assigner) layered(g *model.RawGraph) []model.Position {
	nodes := g.Nodes
	positions := make([]model.Position, len(nodes))
	if len(nodes) == 0 {
		return positions
	}

	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if _, dup := index[n.ID]; !dup {
			index[n.ID] = i
		}
	}

	outgoing := make([][]int, len(nodes))
	inDegree := make([]int, len(nodes))
	for _, e := range g.Edges {
		from, okFrom := index[e.Source]
		to, okTo := index[e.Target]
		if !okFrom || !okTo || from == to {
			continue
		}
		outgoing[from] = append(outgoing[from], to)
		inDegree[to]++
	}

	levels := a.assignLevels(nodes, outgoing, inDegree)

	for _, level := range levels.order {
		members := levels.members[level]
		mid := float64(len(members)-1) / 2
		for i, idx := range members {
			positions[idx] = model.Position{
				X: (float64(i) - mid) * a.opts.SiblingSpacing,
				Y: float64(level) * a.opts.LevelSpacing,
			}
		}
	}
	return positions
}

type levelAssignment struct {
	order   []int         // levels in ascending order
	members map[int][]int // level -> node indexes in visit order
}

func (a *Assigner) assignLevels(nodes []model.RawNode, outgoing [][]int, inDegree []int) levelAssignment {
	level := make([]int, len(nodes))
	for i := range level {
		level[i] = -1
	}
	res := levelAssignment{members: make(map[int][]int)}
	maxLevel := -1

	visit := func(roots []int, base int) {
		queue := make([]int, 0, len(nodes))
		for _, r := range roots {
			if level[r] < 0 {
				level[r] = base
				queue = append(queue, r)
			}
		}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if level[cur] > maxLevel {
				maxLevel = level[cur]
				res.order = append(res.order, maxLevel)
			}
			res.members[level[cur]] = append(res.members[level[cur]], cur)
			for _, next := range outgoing[cur] {
				if level[next] < 0 {
					level[next] = level[cur] + 1
					queue = append(queue, next)
				}
			}
		}
	}

	visit(roots(nodes, inDegree), 0)
	for i := range nodes {
		if level[i] < 0 {
			visit([]int{i}, maxLevel+1)
		}
	}
	return res
}

// roots prefers start nodes, then nodes without incoming edges, then the first node.
func roots(nodes []model.RawNode, inDegree []int) []int {
	var starts, sources []int
	for i, n := range nodes {
		if n.Type == model.NodeStart {
			starts = append(starts, i)
		}
		if inDegree[i] == 0 {
			sources = append(sources, i)
		}
	}
	switch {
	case len(starts) > 0:
		return starts
	case len(sources) > 0:
		return sources
	default:
		return []int{0}
	}
}

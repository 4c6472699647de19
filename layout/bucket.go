package layout

import (
	"strconv"
	"strings"

	"github.com/awantoch/scriptflow/model"
)

const (
	decisionColumnStep = 200
	decisionRow        = 60
	actionColumn       = 400
	actionRowStep      = 60
)

// bucketPositions places each node independently from its type and id digits.
// Nodes may share a position; no collision resolution is done.
func bucketPositions(nodes []model.RawNode) []model.Position {
	out := make([]model.Position, len(nodes))
	for i, n := range nodes {
		out[i] = bucketPosition(n)
	}
	return out
}

func bucketPosition(n model.RawNode) model.Position {
	switch n.Type {
	case model.NodeStart:
		return model.Position{X: 0, Y: 0}
	case model.NodeDecision:
		return model.Position{X: decisionColumnStep * idNumber(n.ID), Y: decisionRow}
	default:
		return model.Position{X: actionColumn, Y: actionRowStep * idNumber(n.ID)}
	}
}

// idNumber reads the ASCII digits of id as one number. No digits, a zero
// value or a value too large to represent all yield 1.
func idNumber(id string) float64 {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, id)
	if digits == "" {
		return 1
	}
	n, err := strconv.ParseFloat(digits, 64)
	if err != nil || n == 0 {
		return 1
	}
	return n
}

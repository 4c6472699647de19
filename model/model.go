package model

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// NodeType names the conversational role of a node.
type NodeType string

const (
	NodeStart    NodeType = "start"
	NodeDecision NodeType = "decision"
	NodeAction   NodeType = "action"
)

// VisualDefault is the rendering-surface node kind every node type maps to today.
const VisualDefault = "default"

type RawNode struct {
	ID    string   `yaml:"id" json:"id"`
	Type  NodeType `yaml:"type" json:"type"`
	Label string   `yaml:"label" json:"label"`
}

type RawEdge struct {
	Source    string `yaml:"source" json:"source"`
	Target    string `yaml:"target" json:"target"`
	Condition string `yaml:"condition,omitempty" json:"condition,omitempty"`
}

// RawGraph is a flow graph as produced by a script parser.
type RawGraph struct {
	Nodes []RawNode `yaml:"nodes" json:"nodes"`
	Edges []RawEdge `yaml:"edges" json:"edges"`
}

type Position struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// NodeData is the payload rendering surfaces read the visible label from.
type NodeData struct {
	Label string `yaml:"label" json:"label"`
}

type PositionedNode struct {
	ID            string   `yaml:"id" json:"id"`
	Type          NodeType `yaml:"type" json:"type"`
	Label         string   `yaml:"label" json:"label"`
	Position      Position `yaml:"position" json:"position"`
	VisualVariant string   `yaml:"visualVariant" json:"visualVariant"`
	Data          NodeData `yaml:"data" json:"data"`
}

type DisplayEdge struct {
	ID     string `yaml:"id" json:"id"`
	Source string `yaml:"source" json:"source"`
	Target string `yaml:"target" json:"target"`
	Label  string `yaml:"label" json:"label"`
}

// PositionedGraph is a display-ready graph. Nodes and Edges are never nil.
type PositionedGraph struct {
	Nodes []PositionedNode `yaml:"nodes" json:"nodes"`
	Edges []DisplayEdge    `yaml:"edges" json:"edges"`
}

// NewPositionedGraph allocates a PositionedGraph sized for n nodes and e edges.
func NewPositionedGraph(n, e int) *PositionedGraph {
	return &PositionedGraph{
		Nodes: make([]PositionedNode, 0, n),
		Edges: make([]DisplayEdge, 0, e),
	}
}

// DecodeGraph reads a RawGraph from JSON or YAML. Missing collections are left
// empty and an empty document yields an empty graph.
func DecodeGraph(data []byte) (*RawGraph, error) {
	var g RawGraph
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &g, nil
	}
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &g); err != nil {
			return nil, err
		}
		return &g, nil
	}
	if err := yaml.Unmarshal(trimmed, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

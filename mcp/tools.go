package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcp "github.com/metoro-io/mcp-golang"

	"github.com/awantoch/scriptflow/config"
	"github.com/awantoch/scriptflow/graph"
	"github.com/awantoch/scriptflow/layout"
	"github.com/awantoch/scriptflow/model"
	"github.com/awantoch/scriptflow/parser"
)

type ParseScriptArgs struct {
	Script string `json:"script" jsonschema:"required,description=Conversation script using If/Otherwise/Else lines or arrows"`
}

type LayoutGraphArgs struct {
	Graph    string `json:"graph" jsonschema:"required,description=Flow graph as JSON or YAML with nodes and edges"`
	Strategy string `json:"strategy,omitempty" jsonschema:"description=Layout strategy: id-bucket (default) or layered"`
}

type ScriptToFlowArgs struct {
	Script   string `json:"script" jsonschema:"required,description=Conversation script to parse and lay out"`
	Strategy string `json:"strategy,omitempty" jsonschema:"description=Layout strategy: id-bucket (default) or layered"`
}

type RenderMermaidArgs struct {
	Script string `json:"script" jsonschema:"required,description=Conversation script to render as a Mermaid flowchart"`
}

// Toolset implements the scriptflow MCP tools on top of a parser and the
// configured layout.
type Toolset struct {
	parser   parser.Parser
	layout   config.LayoutConfig
	assigner *layout.Assigner
}

// NewToolset fails when cfg names an unknown strategy.
func NewToolset(p parser.Parser, cfg config.LayoutConfig) (*Toolset, error) {
	a, err := layout.FromConfig(cfg, "")
	if err != nil {
		return nil, err
	}
	return &Toolset{parser: p, layout: cfg, assigner: a}, nil
}

// Registrations returns the tool list for Serve.
func (t *Toolset) Registrations() []ToolRegistration {
	return []ToolRegistration{
		{Name: "parseScript", Description: "Parse a conversation script into a flow graph", Handler: t.ParseScript},
		{Name: "layoutGraph", Description: "Assign display positions to a flow graph", Handler: t.LayoutGraph},
		{Name: "scriptToFlow", Description: "Parse a script and return the positioned flow", Handler: t.ScriptToFlow},
		{Name: "renderMermaid", Description: "Render a script as a Mermaid flowchart", Handler: t.RenderMermaid},
	}
}

func (t *Toolset) ParseScript(ctx context.Context, args ParseScriptArgs) (*mcp.ToolResponse, error) {
	g, err := t.parser.Parse(ctx, args.Script)
	if err != nil {
		return nil, err
	}
	return jsonResponse(g)
}

func (t *Toolset) LayoutGraph(ctx context.Context, args LayoutGraphArgs) (*mcp.ToolResponse, error) {
	a, err := t.assignerFor(args.Strategy)
	if err != nil {
		return nil, err
	}
	g, err := model.DecodeGraph([]byte(args.Graph))
	if err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	return jsonResponse(a.Layout(g))
}

func (t *Toolset) ScriptToFlow(ctx context.Context, args ScriptToFlowArgs) (*mcp.ToolResponse, error) {
	a, err := t.assignerFor(args.Strategy)
	if err != nil {
		return nil, err
	}
	g, err := t.parser.Parse(ctx, args.Script)
	if err != nil {
		return nil, err
	}
	return jsonResponse(a.Layout(g))
}

func (t *Toolset) RenderMermaid(ctx context.Context, args RenderMermaidArgs) (*mcp.ToolResponse, error) {
	g, err := t.parser.Parse(ctx, args.Script)
	if err != nil {
		return nil, err
	}
	out, err := graph.ExportMermaid(t.assigner.Layout(g))
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResponse(mcp.NewTextContent(out)), nil
}

func (t *Toolset) assignerFor(name string) (*layout.Assigner, error) {
	if name == "" {
		return t.assigner, nil
	}
	return layout.FromConfig(t.layout, name)
}

func jsonResponse(v any) (*mcp.ToolResponse, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResponse(mcp.NewTextContent(string(b))), nil
}

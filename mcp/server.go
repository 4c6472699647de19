package mcp

import (
	"context"
	"io"

	mcp "github.com/metoro-io/mcp-golang"
	mcphttp "github.com/metoro-io/mcp-golang/transport/http"
	mcpstdio "github.com/metoro-io/mcp-golang/transport/stdio"

	"github.com/awantoch/scriptflow/utils"
)

// ToolRegistration holds a tool's registration info for the MCP server.
type ToolRegistration struct {
	Name        string
	Description string
	Handler     any // must be a func(ctx, args) (*mcp.ToolResponse, error)
}

// Serve runs an MCP server exposing tools until ctx is cancelled. With stdio
// the protocol runs over stdin/stdout, otherwise over HTTP at addr.
func Serve(ctx context.Context, debug, stdio bool, addr string, tools []ToolRegistration) error {
	// Stdout carries the protocol in stdio mode.
	if stdio && !debug {
		utils.SetUserOutput(io.Discard)
	}

	var server *mcp.Server
	if stdio {
		utils.Info("Starting MCP server on stdio...")
		server = mcp.NewServer(mcpstdio.NewStdioServerTransport())
	} else {
		utils.Info("Starting MCP server on HTTP at %s...", addr)
		server = mcp.NewServer(mcphttp.NewHTTPTransport("/mcp").WithAddr(addr))
	}
	if err := RegisterAllTools(server, tools); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve() }()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		// The stdio transport returns from Serve immediately and keeps
		// reading in the background.
		<-ctx.Done()
	case <-ctx.Done():
	}
	utils.Info("MCP server shutting down")
	return nil
}

// RegisterAllTools registers tools with server, stopping at the first
// rejected registration.
func RegisterAllTools(server *mcp.Server, tools []ToolRegistration) error {
	for _, t := range tools {
		if err := server.RegisterTool(t.Name, t.Description, t.Handler); err != nil {
			return utils.Errorf("register MCP tool %s: %w", t.Name, err)
		}
	}
	return nil
}

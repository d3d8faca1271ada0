package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// ClientName and ClientVersion identify riskpilot during the MCP handshake.
const (
	ClientName    = "riskpilot"
	ClientVersion = "0.1.0"
)

// Session is one live connection to an MCP server.
// *client.Client from mark3labs/mcp-go satisfies it.
type Session interface {
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// Open connects to the server described by cfg and performs the initialize
// handshake. For SSE servers ctx must outlive the session, since the event
// stream is bound to it.
func Open(ctx context.Context, name string, cfg ServerConfig) (Session, error) {
	var (
		c   *client.Client
		err error
	)

	switch cfg.transport() {
	case TransportStdio:
		// The stdio client starts its subprocess on construction.
		c, err = client.NewStdioMCPClient(cfg.Command, envList(cfg.Env), cfg.Args...)
	case TransportSSE:
		if cfg.URL == "" {
			return nil, fmt.Errorf("MCP server %q: no url configured", name)
		}
		c, err = client.NewSSEMCPClient(cfg.URL, transport.WithHeaders(cfg.Headers))
		if err == nil {
			err = c.Start(ctx)
		}
	case TransportHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("MCP server %q: no command or url configured", name)
		}
		c, err = client.NewStreamableHttpClient(cfg.URL, transport.WithHTTPHeaders(cfg.Headers))
		if err == nil {
			err = c.Start(ctx)
		}
	default:
		return nil, fmt.Errorf("MCP server %q: unknown transport %q", name, cfg.Transport)
	}
	if err != nil {
		if c != nil {
			_ = c.Close()
		}
		return nil, fmt.Errorf("start MCP server %q: %w", name, err)
	}

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: ClientName, Version: ClientVersion}
	if _, err := c.Initialize(ctx, req); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("initialize MCP server %q: %w", name, err)
	}
	return c, nil
}

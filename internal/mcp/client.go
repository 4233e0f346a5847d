package mcp

import (
	"context"
	"encoding/json"
)

// ToolHost represents a connection to an MCP tool server.
type ToolHost interface {
	// Initialize performs the MCP handshake. It must be called once before
	// ListTools or CallTool.
	Initialize(ctx context.Context) error

	// ListTools returns the tools the host currently advertises.
	ListTools(ctx context.Context) ([]Tool, error)

	// CallTool invokes a tool with raw JSON arguments.
	CallTool(ctx context.Context, name string, args json.RawMessage) (*CallToolResult, error)

	// Close tears down the connection. Safe to call more than once.
	Close() error
}

// Tool represents an MCP tool available for invocation.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]interface{} // JSON Schema for input parameters
}

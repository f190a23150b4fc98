// Package mcp provides MCP (Model Context Protocol) client functionality.
// MCP allows AI applications to connect to external tools and data sources.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	clientName    = "mcp-chat"
	clientVersion = "1.0.0"
)

// ErrNotConnected is returned when the session is used before Connect.
var ErrNotConnected = errors.New("not connected to MCP server")

// Tool represents an MCP tool with its metadata
type Tool struct {
	Name           string
	Description    string
	InputSchema    mcp.ToolInputSchema
	RawInputSchema json.RawMessage
}

// Client wraps an MCP client session.
type Client struct {
	mcpClient  *client.Client
	connected  bool
	serverName string
}

// NewClient starts the command as a subprocess and wires an MCP session to
// its stdio. env entries are KEY=value pairs appended to the subprocess
// environment.
func NewClient(command string, env []string, args ...string) (*Client, error) {
	mcpClient, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client: %w", err)
	}

	return &Client{mcpClient: mcpClient}, nil
}

// NewInProcessClient connects to an MCP server running in the same process.
func NewInProcessClient(srv *server.MCPServer) (*Client, error) {
	mcpClient, err := client.NewInProcessClient(srv)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-process MCP client: %w", err)
	}

	return &Client{mcpClient: mcpClient}, nil
}

// Connect performs the protocol handshake and capability negotiation.
func (c *Client) Connect(ctx context.Context) error {
	// Start is idempotent; the stdio transport is already running.
	if err := c.mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to start MCP transport: %w", err)
	}

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}
	initRequest.Params.Capabilities = mcp.ClientCapabilities{}

	result, err := c.mcpClient.Initialize(ctx, initRequest)
	if err != nil {
		return fmt.Errorf("MCP initialization failed: %w", err)
	}

	c.serverName = result.ServerInfo.Name
	c.connected = true
	return nil
}

// ServerName returns the name the server reported during the handshake.
func (c *Client) ServerName() string {
	return c.serverName
}

// ListTools returns all available tools from the MCP server.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	if !c.connected {
		return nil, ErrNotConnected
	}

	toolsResult, err := c.mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	tools := make([]Tool, 0, len(toolsResult.Tools))
	for _, t := range toolsResult.Tools {
		tools = append(tools, Tool{
			Name:           t.Name,
			Description:    t.Description,
			InputSchema:    t.InputSchema,
			RawInputSchema: t.RawInputSchema,
		})
	}

	return tools, nil
}

// CallTool executes a tool on the MCP server and returns its content as
// text. A result flagged as a tool error is returned as text too, so the
// model can see what went wrong; only transport and protocol failures
// produce an error.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	if !c.connected {
		return "", ErrNotConnected
	}

	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = args

	result, err := c.mcpClient.CallTool(ctx, request)
	if err != nil {
		return "", fmt.Errorf("tool call failed: %w", err)
	}

	return ContentText(result.Content), nil
}

// ContentText flattens tool result content into text. Text parts are joined
// with newlines; other parts are encoded as JSON.
func ContentText(content []mcp.Content) string {
	parts := make([]string, 0, len(content))
	for _, item := range content {
		if text, ok := mcp.AsTextContent(item); ok {
			parts = append(parts, text.Text)
			continue
		}
		data, err := json.Marshal(item)
		if err != nil {
			parts = append(parts, fmt.Sprintf("%v", item))
			continue
		}
		parts = append(parts, string(data))
	}
	return strings.Join(parts, "\n")
}

// Close terminates the session and, for stdio, the subprocess.
func (c *Client) Close() error {
	c.connected = false
	if c.mcpClient != nil {
		return c.mcpClient.Close()
	}
	return nil
}

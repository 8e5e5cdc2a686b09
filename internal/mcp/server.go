// Package mcp exposes the HR tool registries over the Model Context
// Protocol so external MCP clients (editors, other agents) can call the
// same tools the chat agents use.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hrmate/hrmate/internal/agent"
	"github.com/hrmate/hrmate/internal/hrerr"
)

// Server wraps the MCP SDK server around the HR tool registries.
type Server struct {
	mcpServer *mcp.Server
	name      string
	version   string
}

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
	// EmployeeID is the identity attached to every tool call. MCP has
	// no per-request identity, so the server is bound to one employee
	// at startup (the local user running it).
	EmployeeID string
	// Registries are the tool sets to expose. Tool names must be
	// unique across all of them.
	Registries []*agent.Registry
	Logger     *slog.Logger
}

// NewServer creates an MCP server exposing every tool of the given
// registries.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if cfg.EmployeeID == "" {
		return nil, fmt.Errorf("employee ID is required")
	}
	if len(cfg.Registries) == 0 {
		return nil, fmt.Errorf("at least one tool registry is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		mcpServer: mcpServer,
		name:      cfg.Name,
		version:   cfg.Version,
	}

	seen := make(map[string]bool)
	for _, registry := range cfg.Registries {
		for _, tool := range registry.Tools() {
			if seen[tool.Name] {
				return nil, fmt.Errorf("duplicate tool name %q across registries", tool.Name)
			}
			seen[tool.Name] = true
			s.register(tool, cfg.EmployeeID, logger)
		}
	}

	return s, nil
}

// Run serves MCP on the given transport. Blocks until the context is
// canceled or the transport closes.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

// register adds one HR tool to the MCP server. Domain errors come back
// as error results the client can show; anything else propagates as a
// protocol error.
func (s *Server) register(tool *agent.Tool, employeeID string, logger *slog.Logger) {
	mcpTool := &mcp.Tool{
		Name:        tool.Name,
		Description: tool.Description,
		InputSchema: tool.InputSchema,
	}

	mcp.AddTool(s.mcpServer, mcpTool, func(ctx context.Context, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
		ctx = agent.WithUser(ctx, employeeID)

		out, err := tool.Handler(ctx, args)
		if err != nil {
			if isDomainError(err) {
				logger.Debug("tool returned domain error", "tool", tool.Name, "error", err)
				return &mcp.CallToolResult{
					Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
					IsError: true,
				}, nil, nil
			}
			return nil, nil, fmt.Errorf("tool %s: %w", tool.Name, err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: out}},
		}, nil, nil
	})
}

// isDomainError reports whether err belongs to the domain taxonomy, as
// opposed to an infrastructure failure.
func isDomainError(err error) bool {
	return hrerr.IsValidation(err) ||
		hrerr.IsNotFound(err) ||
		hrerr.IsConflict(err) ||
		hrerr.IsExternal(err)
}

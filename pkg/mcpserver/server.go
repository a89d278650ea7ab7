// Package mcpserver exposes the routed database operations as MCP tools over
// stdio. One tool is generated per (backend type, operation) pair from the
// connector capability table, so adding a backend family grows the tool
// surface without touching this package.
package mcpserver

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/core"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/registry"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/logger"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/router"
)

// Version is the server version, set at build time.
var Version = "dev"

// Server wraps an MCP server instance around a built router registry.
type Server struct {
	mcpServer *server.MCPServer
	router    *router.Registry
	logger    *zap.Logger
}

// NewServer creates an MCP server exposing one tool per operation of every
// capability in caps, plus a list_databases catalog tool. The router registry
// must already be built.
func NewServer(rt *router.Registry, caps *registry.Registry) *Server {
	s := &Server{
		router: rt,
		logger: logger.Get().With(zap.String("component", "mcp_server")),
	}

	s.mcpServer = server.NewMCPServer(
		"multi-db-toolbox",
		Version,
		server.WithToolCapabilities(true),
		server.WithInstructions("This server exposes tools for the databases declared in its "+
			"configuration. Every tool takes a db_id identifying the target instance; call "+
			"list_databases first to discover the configured ids, their types, and availability."),
	)

	s.registerCatalogTools()
	for _, cap := range caps.List() {
		for _, op := range cap.Operations {
			s.registerOperationTool(cap, op)
		}
	}

	return s
}

// MCPServer returns the underlying mcp-go server instance (useful for testing).
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves MCP over standard input/output until ctx is done.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := server.NewStdioServer(s.mcpServer)
	return srv.Listen(ctx, os.Stdin, os.Stdout)
}

func (s *Server) registerCatalogTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("list_databases",
			mcp.WithDescription("List the configured database instances with their id, type, "+
				"and availability. Unavailable instances include the recorded connection error."),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleListDatabases,
	)
}

func (s *Server) handleListDatabases(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return marshalToolResult(s.router.Instances())
}

// registerOperationTool generates the MCP tool for one capability operation.
// Tool names are <type>_<operation>, e.g. postgres_query or redis_get.
func (s *Server) registerOperationTool(cap *core.Capability, op core.Operation) {
	opts := []mcp.ToolOption{
		mcp.WithDescription(fmt.Sprintf("%s Applies to %s databases.", op.Description, cap.Type)),
		mcp.WithString("db_id",
			mcp.Required(),
			mcp.Description(fmt.Sprintf("Configured id of the target %s database", cap.Type)),
		),
	}
	for _, arg := range op.Args {
		opts = append(opts, argOption(arg))
	}

	toolName := fmt.Sprintf("%s_%s", cap.Type, op.Name)
	s.mcpServer.AddTool(mcp.NewTool(toolName, opts...), s.operationHandler(op.Name))
}

// argOption maps an operation argument spec onto an MCP tool parameter.
// JSON-typed arguments are accepted as serialized strings; the router parses
// them during coercion.
func argOption(arg core.ArgSpec) mcp.ToolOption {
	var argOpts []mcp.PropertyOption
	if arg.Required {
		argOpts = append(argOpts, mcp.Required())
	}
	if arg.Description != "" {
		argOpts = append(argOpts, mcp.Description(arg.Description))
	}

	if arg.Type == core.ArgTypeInt {
		return mcp.WithNumber(arg.Name, argOpts...)
	}
	return mcp.WithString(arg.Name, argOpts...)
}

// operationHandler adapts one operation into an MCP tool handler. All routing
// failures come back as tool errors, never as protocol-level failures.
func (s *Server) operationHandler(operation string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		dbID, _ := args["db_id"].(string)
		if dbID == "" {
			return mcp.NewToolResultError("db_id is required"), nil
		}

		callArgs := make(map[string]interface{}, len(args))
		for k, v := range args {
			if k == "db_id" {
				continue
			}
			callArgs[k] = v
		}

		result := s.router.Dispatch(ctx, operation, dbID, callArgs)
		if !result.OK {
			s.logger.Debug("dispatch failed",
				zap.String("db_id", dbID),
				zap.String("operation", operation),
				zap.String("error_type", string(result.ErrorType())),
				zap.Error(result.Err))
			return mcp.NewToolResultError(result.Err.Error()), nil
		}

		return marshalToolResult(result.Payload)
	}
}

func marshalToolResult(payload interface{}) (*mcp.CallToolResult, error) {
	if payload == nil {
		return mcp.NewToolResultText("null"), nil
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to serialize result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

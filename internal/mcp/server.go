package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"resolwe-go/sdk/internal/services"
	"resolwe-go/sdk/pkg/models"
	"resolwe-go/sdk/pkg/resolwe"
)

const defaultWaitTimeout = 5 * time.Minute

// RunService is the service surface exposed as tools.
// *services.RunService satisfies it.
type RunService interface {
	ListProcesses(ctx context.Context, category string) ([]models.Process, error)
	GetProcess(ctx context.Context, slug string) (*models.Process, error)
	Run(ctx context.Context, slug string, input map[string]any, opts resolwe.InvokeOptions) (*models.Data, error)
	Status(ctx context.Context, id int) (*models.Data, error)
	Wait(ctx context.Context, id int, onUpdate services.UpdateFunc) (*models.Data, error)
}

type Server struct {
	mcpServer *server.MCPServer
	runs      RunService
}

func NewServer(runs RunService, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Resolwe",
			version,
			server.WithToolCapabilities(true),
		),
		runs: runs,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_processes",
			mcp.WithDescription("List process definitions available on the platform"),
			mcp.WithString("category", mcp.Description("Only list processes in this category")),
		),
		s.handleListProcesses,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_process",
			mcp.WithDescription("Show the latest version of a process, including its input schema"),
			mcp.WithString("slug", mcp.Required(), mcp.Description("The process slug")),
		),
		s.handleGetProcess,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"run_process",
			mcp.WithDescription("Validate inputs and start one run of a process. Every call creates a new data object."),
			mcp.WithString("slug", mcp.Required(), mcp.Description("The process slug")),
			mcp.WithObject("input", mcp.Required(), mcp.Description("Input values keyed by field name")),
			mcp.WithString("name", mcp.Description("Name of the new data object")),
			mcp.WithNumber("collection", mcp.Description("ID of the collection to add the data object to")),
		),
		s.handleRunProcess,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"refresh_data",
			mcp.WithDescription("Fetch the current status and progress of a data object"),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("The data object ID")),
		),
		s.handleRefreshData,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"wait_for_data",
			mcp.WithDescription("Poll a data object until it is done (OK, ER or DR)"),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("The data object ID")),
			mcp.WithNumber("timeout_seconds", mcp.Description("Give up after this many seconds (default 300)")),
		),
		s.handleWaitForData,
	)
}

func (s *Server) handleListProcesses(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok && request.Params.Arguments != nil {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}
	category, _ := args["category"].(string)

	processes, err := s.runs.ListProcesses(ctx, category)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list processes: %v", err)), nil
	}

	type summary struct {
		Slug     string `json:"slug"`
		Name     string `json:"name"`
		Version  string `json:"version"`
		Category string `json:"category"`
	}
	out := make([]summary, 0, len(processes))
	for _, p := range processes {
		out = append(out, summary{Slug: p.Slug, Name: p.Name, Version: p.Version, Category: p.Category})
	}
	return jsonResult(out)
}

func (s *Server) handleGetProcess(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	slug, ok := args["slug"].(string)
	if !ok || slug == "" {
		return mcp.NewToolResultError("Missing required parameter: slug"), nil
	}

	process, err := s.runs.GetProcess(ctx, slug)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get process: %v", err)), nil
	}
	return jsonResult(process)
}

func (s *Server) handleRunProcess(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	slug, ok := args["slug"].(string)
	if !ok || slug == "" {
		return mcp.NewToolResultError("Missing required parameter: slug"), nil
	}
	input, ok := args["input"].(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: input"), nil
	}

	var opts resolwe.InvokeOptions
	opts.Name, _ = args["name"].(string)
	if collection, ok := args["collection"].(float64); ok {
		opts.Collection = int(collection)
	}

	data, err := s.runs.Run(ctx, slug, input, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to run process: %v", err)), nil
	}
	return jsonResult(data)
}

func (s *Server) handleRefreshData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := dataID(request)
	if errResult != nil {
		return errResult, nil
	}

	data, err := s.runs.Status(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to refresh data: %v", err)), nil
	}
	return jsonResult(data)
}

func (s *Server) handleWaitForData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := dataID(request)
	if errResult != nil {
		return errResult, nil
	}

	timeout := defaultWaitTimeout
	args, _ := request.Params.Arguments.(map[string]interface{})
	if secs, ok := args["timeout_seconds"].(float64); ok && secs > 0 {
		timeout = time.Duration(secs * float64(time.Second))
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	data, err := s.runs.Wait(ctx, id, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to wait for data: %v", err)), nil
	}
	return jsonResult(data)
}

func dataID(request mcp.CallToolRequest) (int, *mcp.CallToolResult) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return 0, mcp.NewToolResultError("Invalid arguments type")
	}
	id, ok := args["id"].(float64)
	if !ok || id <= 0 || id != float64(int(id)) {
		return 0, mcp.NewToolResultError("Missing required parameter: id")
	}
	return int(id), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// MountHTTPHandlers serves the streamable HTTP transport at /mcp and the
// SSE transport at /mcp/sse with its message endpoint at /mcp/message.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	mux.Handle("/mcp", server.NewStreamableHTTPServer(mcpServer, server.WithEndpointPath("/mcp")))

	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))
	mux.Handle("/mcp/sse", sseServer)
	mux.Handle("/mcp/message", sseServer)
}

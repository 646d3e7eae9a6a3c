// Package api contains the HTTP handlers of the Resolwe gateway.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"

	"resolwe-go/sdk/internal/repository"
	"resolwe-go/sdk/pkg/models"
	"resolwe-go/sdk/pkg/resolwe"
)

// RunAPI is the service surface the gateway exposes.
// *services.RunService satisfies it.
type RunAPI interface {
	ListProcesses(ctx context.Context, category string) ([]models.Process, error)
	GetProcess(ctx context.Context, slug string) (*models.Process, error)
	Run(ctx context.Context, slug string, input map[string]any, opts resolwe.InvokeOptions) (*models.Data, error)
	Status(ctx context.Context, id int) (*models.Data, error)
	History(ctx context.Context, id int) ([]*repository.Snapshot, error)
}

// RunRequest is the body of POST /api/v1/data.
type RunRequest struct {
	Process          string                    `json:"process"`
	Input            map[string]any            `json:"input"`
	Name             string                    `json:"name,omitempty"`
	Descriptor       map[string]any            `json:"descriptor,omitempty"`
	DescriptorSchema string                    `json:"descriptor_schema,omitempty"`
	Collection       int                       `json:"collection,omitempty"`
	Tags             []string                  `json:"tags,omitempty"`
	Resources        *resolwe.ProcessResources `json:"process_resources,omitempty"`
}

// HistoryEntry is one journaled observation.
type HistoryEntry struct {
	ID         string        `json:"id"`
	Status     models.Status `json:"status"`
	Progress   float64       `json:"progress"`
	ObservedAt time.Time     `json:"observed_at"`
}

// Server holds the dependencies for the API server.
type Server struct {
	svc RunAPI
}

// NewServer creates a new Server.
func NewServer(svc RunAPI) *Server {
	return &Server{svc: svc}
}

// RegisterHandlers mounts the API routes on g. read guards the GET routes
// and write guards POST.
func RegisterHandlers(g *echo.Group, s *Server, read, write echo.MiddlewareFunc) {
	g.GET("/processes", s.ListProcesses, read)
	g.GET("/processes/:slug", s.GetProcess, read)
	g.POST("/data", s.CreateData, write)
	g.GET("/data/:id", s.GetData, read).Name = "data"
	g.GET("/data/:id/history", s.GetDataHistory, read)
}

// ListProcesses returns process definitions
// (GET /api/v1/processes?category=...)
func (s *Server) ListProcesses(c echo.Context) error {
	var category string
	if err := runtime.BindQueryParameter("form", true, false, "category", c.QueryParams(), &category); err != nil {
		return writeProblem(c, http.StatusBadRequest, "Invalid query", err.Error(), "category")
	}

	processes, err := s.svc.ListProcesses(c.Request().Context(), category)
	if err != nil {
		return writeError(c, err)
	}
	if processes == nil {
		processes = []models.Process{}
	}
	return c.JSON(http.StatusOK, processes)
}

// GetProcess returns the latest version of one process
// (GET /api/v1/processes/{slug})
func (s *Server) GetProcess(c echo.Context) error {
	var slug string
	if err := bindPath(c, "slug", &slug); err != nil {
		return writeProblem(c, http.StatusBadRequest, "Invalid path parameter", err.Error(), "slug")
	}

	process, err := s.svc.GetProcess(c.Request().Context(), slug)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, process)
}

// CreateData validates the input and starts a run
// (POST /api/v1/data)
func (s *Server) CreateData(c echo.Context) error {
	var req RunRequest
	if err := c.Bind(&req); err != nil {
		return writeProblem(c, http.StatusBadRequest, "Invalid request body", err.Error(), "")
	}
	if req.Process == "" {
		return writeProblem(c, http.StatusUnprocessableEntity, "Invalid input", "process slug is required", "process")
	}

	data, err := s.svc.Run(c.Request().Context(), req.Process, req.Input, resolwe.InvokeOptions{
		Name:             req.Name,
		Descriptor:       req.Descriptor,
		DescriptorSchema: req.DescriptorSchema,
		Collection:       req.Collection,
		Tags:             req.Tags,
		Resources:        req.Resources,
	})
	if err != nil {
		return writeError(c, err)
	}
	c.Response().Header().Set(echo.HeaderLocation, c.Echo().Reverse("data", data.ID))
	return c.JSON(http.StatusCreated, data)
}

// GetData refreshes and returns one data object
// (GET /api/v1/data/{id})
func (s *Server) GetData(c echo.Context) error {
	var id int
	if err := bindPath(c, "id", &id); err != nil {
		return writeProblem(c, http.StatusBadRequest, "Invalid path parameter", err.Error(), "id")
	}

	data, err := s.svc.Status(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, data)
}

// GetDataHistory returns the journaled observations of one data object
// (GET /api/v1/data/{id}/history)
func (s *Server) GetDataHistory(c echo.Context) error {
	var id int
	if err := bindPath(c, "id", &id); err != nil {
		return writeProblem(c, http.StatusBadRequest, "Invalid path parameter", err.Error(), "id")
	}

	snapshots, err := s.svc.History(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	entries := make([]HistoryEntry, 0, len(snapshots))
	for _, snap := range snapshots {
		entries = append(entries, HistoryEntry{
			ID:         snap.ID,
			Status:     snap.Status,
			Progress:   snap.Progress,
			ObservedAt: snap.ObservedAt,
		})
	}
	return c.JSON(http.StatusOK, entries)
}

func bindPath(c echo.Context, name string, dest any) error {
	return runtime.BindStyledParameterWithOptions("simple", name, c.Param(name), dest, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
}

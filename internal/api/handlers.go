package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"resolwe-go/sdk/pkg/errdefs"
	"resolwe-go/sdk/pkg/models"
)

// Pinger is implemented by dependencies reported in the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains the unauthenticated HTTP handlers of the gateway.
type Handler struct {
	version string
	checks  map[string]Pinger
}

// NewHandler creates a new Handler. checks are pinged by the health endpoint.
func NewHandler(version string, checks map[string]Pinger) *Handler {
	return &Handler{version: version, checks: checks}
}

// HandleHealth reports the gateway and dependency status. A failing
// dependency turns the answer into 503.
// (GET /health)
func (h *Handler) HandleHealth(c echo.Context) error {
	status := models.HealthStatus{
		Status:    "ok",
		Service:   "resolwe-gateway",
		Version:   h.version,
		Timestamp: time.Now().UTC(),
	}
	code := http.StatusOK
	if len(h.checks) > 0 {
		status.Checks = make(map[string]string, len(h.checks))
		for name, p := range h.checks {
			if err := p.Ping(c.Request().Context()); err != nil {
				status.Checks[name] = err.Error()
				status.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status.Checks[name] = "ok"
		}
	}
	return c.JSON(code, status)
}

// writeProblem writes an RFC 7807 Problem Details JSON error response
func writeProblem(c echo.Context, status int, title, detail, field string) error {
	problem := models.ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Field:    field,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
	return c.JSON(status, problem)
}

// writeError maps SDK failures onto HTTP problems. Upstream answers keep the
// platform's diagnostic text in the detail.
func writeError(c echo.Context, err error) error {
	var (
		verr *errdefs.ValidationError
		rerr *errdefs.RemoteError
	)
	switch {
	case errors.As(err, &verr):
		return writeProblem(c, http.StatusUnprocessableEntity, "Invalid input", verr.Reason, verr.Path)
	case errdefs.IsNotFound(err):
		return writeProblem(c, http.StatusNotFound, "Not found", err.Error(), "")
	case errdefs.IsAmbiguous(err):
		return writeProblem(c, http.StatusConflict, "Ambiguous reference", err.Error(), "")
	case errors.As(err, &rerr):
		return writeProblem(c, http.StatusBadGateway, "Upstream error", string(rerr.Body), "")
	case errors.Is(err, context.DeadlineExceeded):
		return writeProblem(c, http.StatusGatewayTimeout, "Upstream timeout", err.Error(), "")
	case errdefs.IsTransport(err):
		return writeProblem(c, http.StatusServiceUnavailable, "Upstream unreachable", err.Error(), "")
	default:
		return writeProblem(c, http.StatusInternalServerError, "Internal error", err.Error(), "")
	}
}

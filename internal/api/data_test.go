package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"resolwe-go/sdk/internal/repository"
	"resolwe-go/sdk/pkg/errdefs"
	"resolwe-go/sdk/pkg/models"
	"resolwe-go/sdk/pkg/resolwe"
)

// MockRunAPI satisfies RunAPI
type MockRunAPI struct {
	mock.Mock
}

func (m *MockRunAPI) ListProcesses(ctx context.Context, category string) ([]models.Process, error) {
	args := m.Called(ctx, category)
	p, _ := args.Get(0).([]models.Process)
	return p, args.Error(1)
}

func (m *MockRunAPI) GetProcess(ctx context.Context, slug string) (*models.Process, error) {
	args := m.Called(ctx, slug)
	p, _ := args.Get(0).(*models.Process)
	return p, args.Error(1)
}

func (m *MockRunAPI) Run(ctx context.Context, slug string, input map[string]any, opts resolwe.InvokeOptions) (*models.Data, error) {
	args := m.Called(ctx, slug, input, opts)
	d, _ := args.Get(0).(*models.Data)
	return d, args.Error(1)
}

func (m *MockRunAPI) Status(ctx context.Context, id int) (*models.Data, error) {
	args := m.Called(ctx, id)
	d, _ := args.Get(0).(*models.Data)
	return d, args.Error(1)
}

func (m *MockRunAPI) History(ctx context.Context, id int) ([]*repository.Snapshot, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).([]*repository.Snapshot)
	return s, args.Error(1)
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func newTestEcho(svc RunAPI) *echo.Echo {
	e := echo.New()
	RegisterHandlers(e.Group("/api/v1"), NewServer(svc), passThrough, passThrough)
	return e
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) models.ProblemDetails {
	t.Helper()
	assert.Equal(t, "application/problem+json", rec.Header().Get(echo.HeaderContentType))
	var p models.ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestListProcesses(t *testing.T) {
	svc := new(MockRunAPI)
	svc.On("ListProcesses", mock.Anything, "Assemblers").Return([]models.Process{{ID: 7, Slug: "assembler-abyss"}}, nil)

	rec := serve(newTestEcho(svc), http.MethodGet, "/api/v1/processes?category=Assemblers", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var got []models.Process
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "assembler-abyss", got[0].Slug)
	svc.AssertExpectations(t)
}

func TestGetProcessErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", &errdefs.NotFoundError{Resource: "process", Query: map[string]string{"slug": "x"}}, http.StatusNotFound},
		{"ambiguous", &errdefs.AmbiguousReferenceError{Resource: "process", Count: 2}, http.StatusConflict},
		{"upstream 500", &errdefs.RemoteError{StatusCode: 500, Body: []byte("boom")}, http.StatusBadGateway},
		{"unreachable", &errdefs.TransportError{Err: errors.New("refused")}, http.StatusServiceUnavailable},
		{"timeout", &errdefs.TransportError{Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockRunAPI)
			svc.On("GetProcess", mock.Anything, "x").Return(nil, tc.err)

			rec := serve(newTestEcho(svc), http.MethodGet, "/api/v1/processes/x", "")
			assert.Equal(t, tc.status, rec.Code)
			p := decodeProblem(t, rec)
			assert.Equal(t, tc.status, p.Status)
			assert.Equal(t, "/api/v1/processes/x", p.Instance)
		})
	}
}

func TestUpstreamDiagnosticsPassedThrough(t *testing.T) {
	svc := new(MockRunAPI)
	svc.On("Status", mock.Anything, 42).Return(nil, &errdefs.RemoteError{StatusCode: 403, Body: []byte(`{"detail":"denied"}`)})

	rec := serve(newTestEcho(svc), http.MethodGet, "/api/v1/data/42", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, `{"detail":"denied"}`, decodeProblem(t, rec).Detail)
}

func TestCreateData(t *testing.T) {
	svc := new(MockRunAPI)
	svc.On("Run", mock.Anything, "assembler-abyss", map[string]any{"se": float64(11)}, resolwe.InvokeOptions{
		Name: "run 1", Collection: 3,
	}).Return(&models.Data{ID: 101, Status: models.StatusResolving}, nil)

	rec := serve(newTestEcho(svc), http.MethodPost, "/api/v1/data",
		`{"process": "assembler-abyss", "input": {"se": 11}, "name": "run 1", "collection": 3}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/v1/data/101", rec.Header().Get(echo.HeaderLocation))

	var got models.Data
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 101, got.ID)
	svc.AssertExpectations(t)
}

func TestCreateDataValidationProblem(t *testing.T) {
	svc := new(MockRunAPI)
	svc.On("Run", mock.Anything, "assembler-abyss", mock.Anything, mock.Anything).
		Return(nil, &errdefs.ValidationError{Path: "options.k", Reason: "expected integer, got string"})

	rec := serve(newTestEcho(svc), http.MethodPost, "/api/v1/data", `{"process": "assembler-abyss", "input": {}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	p := decodeProblem(t, rec)
	assert.Equal(t, "options.k", p.Field)
	assert.Equal(t, "expected integer, got string", p.Detail)
}

func TestCreateDataRequiresProcess(t *testing.T) {
	svc := new(MockRunAPI)
	rec := serve(newTestEcho(svc), http.MethodPost, "/api/v1/data", `{"input": {}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	svc.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetDataRejectsNonNumericID(t *testing.T) {
	svc := new(MockRunAPI)
	rec := serve(newTestEcho(svc), http.MethodGet, "/api/v1/data/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "id", decodeProblem(t, rec).Field)
}

func TestGetDataHistory(t *testing.T) {
	observed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := new(MockRunAPI)
	svc.On("History", mock.Anything, 42).Return([]*repository.Snapshot{
		{ID: "a", DataID: 42, Status: models.StatusProcessing, Progress: 40, ObservedAt: observed},
		{ID: "b", DataID: 42, Status: models.StatusDone, Progress: 100, ObservedAt: observed.Add(time.Minute)},
	}, nil)

	rec := serve(newTestEcho(svc), http.MethodGet, "/api/v1/data/42/history", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var got []HistoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, models.StatusDone, got[1].Status)
	assert.True(t, observed.Equal(got[0].ObservedAt))
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/health", NewHandler("1.0.0", nil).HandleHealth)
	rec := serve(e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	e = echo.New()
	e.GET("/health", NewHandler("1.0.0", map[string]Pinger{"journal": failingPinger{}}).HandleHealth)
	rec = serve(e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status models.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "connection refused", status.Checks["journal"])
}

package services

import (
	"context"

	"resolwe-go/sdk/pkg/models"
	"resolwe-go/sdk/pkg/resolwe"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// ProcessCatalog lists process definitions. *resolwe.Resource[models.Process]
// satisfies it.
type ProcessCatalog interface {
	List(ctx context.Context, filter resolwe.Filter) ([]models.Process, error)
}

// ProcessInvoker resolves and runs processes. *resolwe.Invoker satisfies it.
type ProcessInvoker interface {
	Process(ctx context.Context, slug string) (*models.Process, error)
	Invoke(ctx context.Context, slug string, input map[string]any, opts resolwe.InvokeOptions) (*resolwe.Handle, error)
	GetOrRun(ctx context.Context, slug string, input map[string]any) (*resolwe.Handle, error)
}

// DataTracker refreshes data handles. *resolwe.Tracker satisfies it.
type DataTracker interface {
	Track(ctx context.Context, id int) (*resolwe.Handle, error)
	Refresh(ctx context.Context, h *resolwe.Handle) (*models.Data, error)
}

// DataInspector is a DataTracker that can also walk a data object's
// outputs and provenance. *resolwe.Tracker satisfies it.
type DataInspector interface {
	DataTracker
	Files(ctx context.Context, d *models.Data, fileName, fieldName string) ([]string, error)
	Parents(ctx context.Context, id int) ([]models.Data, error)
	Children(ctx context.Context, id int) ([]models.Data, error)
}

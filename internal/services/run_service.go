package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"resolwe-go/sdk/internal/repository"
	"resolwe-go/sdk/pkg/models"
	"resolwe-go/sdk/pkg/resolwe"
)

// RunService is the caller-facing layer used by the gateway, the MCP
// server and the CLI. It keeps one handle per unfinished data object so
// concurrent refreshes of the same object share its serialization. A handle
// is dropped once its object reaches a terminal status. Every snapshot the
// service observes is written to the journal once.
type RunService struct {
	catalog ProcessCatalog
	invoker ProcessInvoker
	tracker DataInspector
	watcher *Watcher
	journal repository.SnapshotStore
	logger  Logger

	mu      sync.Mutex
	handles map[int]*resolwe.Handle
}

// NewRunService creates a new RunService. journal may be nil. The watcher
// should not carry its own journal or snapshots are written twice.
func NewRunService(catalog ProcessCatalog, invoker ProcessInvoker, tracker DataInspector, watcher *Watcher,
	journal repository.SnapshotStore, logger Logger) *RunService {
	if logger == nil {
		logger = nopLogger{}
	}
	return &RunService{
		catalog: catalog,
		invoker: invoker,
		tracker: tracker,
		watcher: watcher,
		journal: journal,
		logger:  logger,
		handles: make(map[int]*resolwe.Handle),
	}
}

// ListProcesses lists process definitions, optionally limited to a category.
func (s *RunService) ListProcesses(ctx context.Context, category string) ([]models.Process, error) {
	filter := resolwe.Filter{}
	if category != "" {
		filter["category"] = category
	}
	return s.catalog.List(ctx, filter)
}

// GetProcess resolves the latest version of a process.
func (s *RunService) GetProcess(ctx context.Context, slug string) (*models.Process, error) {
	return s.invoker.Process(ctx, slug)
}

// Run validates input and starts one run of slug.
func (s *RunService) Run(ctx context.Context, slug string, input map[string]any, opts resolwe.InvokeOptions) (*models.Data, error) {
	h, err := s.invoker.Invoke(ctx, slug, input, opts)
	if err != nil {
		return nil, err
	}
	s.remember(h)
	snapshot := h.Snapshot()
	s.record(ctx, snapshot)
	s.logger.Info("run started", "id", h.ID(), "process", slug)
	return snapshot, nil
}

// GetOrRun returns the existing data object of slug with identical input,
// or starts a new run when there is none.
func (s *RunService) GetOrRun(ctx context.Context, slug string, input map[string]any) (*models.Data, error) {
	h, err := s.invoker.GetOrRun(ctx, slug, input)
	if err != nil {
		return nil, err
	}
	s.remember(h)
	snapshot := h.Snapshot()
	s.record(ctx, snapshot)
	s.logger.Info("run resolved", "id", h.ID(), "process", slug, "status", snapshot.Status)
	return snapshot, nil
}

// Status refreshes data object id once and returns the new snapshot.
func (s *RunService) Status(ctx context.Context, id int) (*models.Data, error) {
	h, fresh, err := s.handle(ctx, id)
	if err != nil {
		return nil, err
	}
	snapshot := h.Snapshot()
	if !fresh {
		if snapshot, err = s.tracker.Refresh(ctx, h); err != nil {
			return nil, err
		}
		s.settle(h)
	}
	s.record(ctx, snapshot)
	return snapshot, nil
}

// Wait polls data object id until it reaches a terminal status.
func (s *RunService) Wait(ctx context.Context, id int, onUpdate UpdateFunc) (*models.Data, error) {
	h, _, err := s.handle(ctx, id)
	if err != nil {
		return nil, err
	}
	final, err := s.watcher.Wait(ctx, h, func(d *models.Data) {
		s.record(ctx, d)
		if onUpdate != nil {
			onUpdate(d)
		}
	})
	s.settle(h)
	return final, err
}

// Files lists the output files of data object id. See resolwe.Tracker.Files
// for the filters.
func (s *RunService) Files(ctx context.Context, id int, fileName, fieldName string) ([]string, error) {
	h, err := s.tracker.Track(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.tracker.Files(ctx, h.Snapshot(), fileName, fieldName)
}

// Parents lists the data objects data object id was computed from.
func (s *RunService) Parents(ctx context.Context, id int) ([]models.Data, error) {
	return s.tracker.Parents(ctx, id)
}

// Children lists the data objects computed from data object id.
func (s *RunService) Children(ctx context.Context, id int) ([]models.Data, error) {
	return s.tracker.Children(ctx, id)
}

// History returns the journaled snapshots of data object id.
func (s *RunService) History(ctx context.Context, id int) ([]*repository.Snapshot, error) {
	if s.journal == nil {
		return nil, errors.New("snapshot journal is not configured")
	}
	return s.journal.History(ctx, id)
}

// handle returns the cached handle for id, tracking it first if needed.
// fresh reports whether the handle was just fetched.
func (s *RunService) handle(ctx context.Context, id int) (*resolwe.Handle, bool, error) {
	s.mu.Lock()
	h, ok := s.handles[id]
	s.mu.Unlock()
	if ok {
		return h, false, nil
	}

	h, err := s.tracker.Track(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return s.remember(h), true, nil
}

// remember caches h unless another caller cached a handle for the same id
// first, in which case that one is returned. Finished handles are not
// cached.
func (s *RunService) remember(h *resolwe.Handle) *resolwe.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.handles[h.ID()]; ok {
		return existing
	}
	if !h.Done() {
		s.handles[h.ID()] = h
	}
	return h
}

// settle drops h from the cache once it is done.
func (s *RunService) settle(h *resolwe.Handle) {
	if !h.Done() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handles[h.ID()] == h {
		delete(s.handles, h.ID())
	}
}

func (s *RunService) cached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

func (s *RunService) record(ctx context.Context, d *models.Data) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, repository.NewSnapshot(uuid.NewString(), d, time.Now())); err != nil {
		s.logger.Error("failed to journal snapshot", "id", d.ID, "error", err)
	}
}

package resolwe

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"resolwe-go/sdk/pkg/models"
)

// Handle is the client-side reference to one data object. It holds the
// latest snapshot received from the server.
//
// Snapshot reads never block. Refreshes of the same handle are serialized;
// each one replaces the whole snapshot, so readers see either the previous
// or the new server response, never a mix.
type Handle struct {
	id       int
	mu       sync.Mutex
	snapshot atomic.Pointer[models.Data]
}

// NewHandle wraps an existing snapshot. The snapshot must not be modified
// afterwards.
func NewHandle(snapshot *models.Data) *Handle {
	h := &Handle{id: snapshot.ID}
	h.snapshot.Store(snapshot)
	return h
}

// ID returns the server-assigned identifier.
func (h *Handle) ID() int { return h.id }

// DataID lets a handle be passed directly as the value of a data: input.
func (h *Handle) DataID() int { return h.id }

// Snapshot returns the latest snapshot. Callers must treat it as read-only.
func (h *Handle) Snapshot() *models.Data { return h.snapshot.Load() }

// Status returns the raw status code of the latest snapshot.
func (h *Handle) Status() models.Status { return h.Snapshot().Status }

// Phase returns the lifecycle stage of the latest snapshot.
func (h *Handle) Phase() models.Phase { return h.Snapshot().Status.Phase() }

// Progress is reported as received; a decrease is not clamped.
func (h *Handle) Progress() float64 { return h.Snapshot().Progress }

// Done reports whether the latest snapshot is in a terminal status.
func (h *Handle) Done() bool { return h.Snapshot().Done() }

// Tracker refreshes handles from the server on demand. It runs no timers
// of its own.
type Tracker struct {
	client *Client
}

// NewTracker returns a Tracker that talks through c.
func NewTracker(c *Client) *Tracker {
	return &Tracker{client: c}
}

// Track fetches data object id and returns a handle for it.
func (t *Tracker) Track(ctx context.Context, id int) (*Handle, error) {
	d, err := t.client.Data.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.ID != id {
		return nil, fmt.Errorf("failed to track data %d: server returned data %d", id, d.ID)
	}
	return NewHandle(d), nil
}

// Refresh performs one fetch of h's data object and swaps in the new
// snapshot once it is fully decoded. On error the previous snapshot is
// kept and the error returned.
func (t *Tracker) Refresh(ctx context.Context, h *Handle) (*models.Data, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := t.client.Data.GetByID(ctx, h.id)
	if err != nil {
		return nil, err
	}
	if d.ID != h.id {
		return nil, fmt.Errorf("failed to refresh data %d: server returned data %d", h.id, d.ID)
	}

	prev := h.snapshot.Swap(d)
	if prev != nil && prev.Status != d.Status {
		t.client.logger.Debug("data status changed", "id", h.id, "from", prev.Status, "to", d.Status)
	}
	return d, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"resolwe-go/sdk/pkg/models"
)

// ErrNoSnapshot is returned when no snapshot was recorded for a data object.
var ErrNoSnapshot = errors.New("no snapshot recorded")

// Snapshot is one observation of a data object, as journaled by the client.
type Snapshot struct {
	ID         string        `json:"id"`
	DataID     int           `json:"data_id"`
	Status     models.Status `json:"status"`
	Progress   float64       `json:"progress"`
	ObservedAt time.Time     `json:"observed_at"`
	Data       *models.Data  `json:"data,omitempty"`
}

// NewSnapshot captures d as observed at t.
func NewSnapshot(id string, d *models.Data, t time.Time) *Snapshot {
	return &Snapshot{
		ID:         id,
		DataID:     d.ID,
		Status:     d.Status,
		Progress:   d.Progress,
		ObservedAt: t.UTC(),
		Data:       d,
	}
}

// SnapshotStore is a journal of observed snapshots.
type SnapshotStore interface {
	// Migrate creates the storage schema if needed.
	Migrate(ctx context.Context) error
	// Record appends a snapshot to the journal.
	Record(ctx context.Context, s *Snapshot) error
	// Latest returns the most recent snapshot of a data object.
	Latest(ctx context.Context, dataID int) (*Snapshot, error)
	// History returns all snapshots of a data object, oldest first.
	History(ctx context.Context, dataID int) ([]*Snapshot, error)
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"resolwe-go/sdk/pkg/models"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS data_snapshots (
	seq         BIGSERIAL PRIMARY KEY,
	id          UUID NOT NULL UNIQUE,
	data_id     INTEGER NOT NULL,
	status      TEXT NOT NULL,
	progress    DOUBLE PRECISION NOT NULL,
	observed_at TIMESTAMPTZ NOT NULL,
	payload     JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS data_snapshots_data_id_idx ON data_snapshots (data_id, seq);`

const snapshotColumns = "id::text, data_id, status, progress, observed_at, payload"

// PostgresSnapshotStore is a PostgreSQL implementation of the SnapshotStore interface.
type PostgresSnapshotStore struct {
	db *pgxpool.Pool
}

// NewPostgresSnapshotStore creates a new PostgresSnapshotStore.
func NewPostgresSnapshotStore(db *pgxpool.Pool) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db}
}

func (s *PostgresSnapshotStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("failed to migrate snapshot journal: %w", err)
	}
	return nil
}

// Record saves a snapshot to the journal.
func (s *PostgresSnapshotStore) Record(ctx context.Context, snap *Snapshot) error {
	payload, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = s.db.Exec(ctx,
		"INSERT INTO data_snapshots (id, data_id, status, progress, observed_at, payload) VALUES ($1, $2, $3, $4, $5, $6)",
		snap.ID, snap.DataID, string(snap.Status), snap.Progress, snap.ObservedAt, string(payload))
	if err != nil {
		return fmt.Errorf("failed to record snapshot of data %d: %w", snap.DataID, err)
	}
	return nil
}

// Latest retrieves the most recent snapshot of a data object.
func (s *PostgresSnapshotStore) Latest(ctx context.Context, dataID int) (*Snapshot, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+snapshotColumns+" FROM data_snapshots WHERE data_id = $1 ORDER BY seq DESC LIMIT 1", dataID)
	snap, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	return snap, err
}

// History lists every snapshot of a data object in recording order.
func (s *PostgresSnapshotStore) History(ctx context.Context, dataID int) ([]*Snapshot, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+snapshotColumns+" FROM data_snapshots WHERE data_id = $1 ORDER BY seq", dataID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

func (s *PostgresSnapshotStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func scanSnapshot(row pgx.Row) (*Snapshot, error) {
	var (
		snap    Snapshot
		status  string
		payload []byte
	)
	if err := row.Scan(&snap.ID, &snap.DataID, &status, &snap.Progress, &snap.ObservedAt, &payload); err != nil {
		return nil, err
	}
	snap.Status = models.Status(status)
	snap.ObservedAt = snap.ObservedAt.UTC()

	var d models.Data
	if err := json.Unmarshal(payload, &d); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", snap.ID, err)
	}
	snap.Data = &d
	return &snap, nil
}

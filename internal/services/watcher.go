package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"resolwe-go/sdk/internal/repository"
	"resolwe-go/sdk/pkg/errdefs"
	"resolwe-go/sdk/pkg/models"
	"resolwe-go/sdk/pkg/resolwe"
)

const (
	defaultPollInterval    = 2 * time.Second
	defaultMaxPollInterval = 30 * time.Second
	defaultMaxFailures     = 5
)

// UpdateFunc is called with every snapshot that differs from the previous one.
type UpdateFunc func(*models.Data)

// Watcher polls a handle until its data object reaches a terminal status.
// The interval grows exponentially while nothing changes and drops back to
// the initial interval whenever status or progress moves.
type Watcher struct {
	tracker     DataTracker
	journal     repository.SnapshotStore
	logger      Logger
	interval    time.Duration
	maxInterval time.Duration
	timeout     time.Duration
	maxFailures int
	now         func() time.Time
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithIntervals sets the initial and maximum polling intervals.
func WithIntervals(initial, max time.Duration) WatcherOption {
	return func(w *Watcher) {
		if initial > 0 {
			w.interval = initial
		}
		if max > 0 {
			w.maxInterval = max
		}
	}
}

// WithTimeout bounds a single Wait. Zero means no limit beyond the context.
func WithTimeout(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.timeout = d }
}

// WithJournal records every changed snapshot in store. RunService journals
// on its own; use this only for a Watcher driven directly.
func WithJournal(store repository.SnapshotStore) WatcherOption {
	return func(w *Watcher) { w.journal = store }
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(l Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithMaxFailures sets how many consecutive transient refresh failures are
// tolerated before Wait gives up.
func WithMaxFailures(n int) WatcherOption {
	return func(w *Watcher) { w.maxFailures = n }
}

// NewWatcher creates a Watcher.
func NewWatcher(tracker DataTracker, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		tracker:     tracker,
		logger:      nopLogger{},
		interval:    defaultPollInterval,
		maxInterval: defaultMaxPollInterval,
		maxFailures: defaultMaxFailures,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.maxInterval < w.interval {
		w.maxInterval = w.interval
	}
	return w
}

// Wait refreshes h until it is done and returns the terminal snapshot.
// Transport failures and 5xx answers are retried up to the failure limit;
// any other error ends the wait. Reaching a failed terminal status is not an
// error: inspect the returned snapshot.
func (w *Watcher) Wait(ctx context.Context, h *resolwe.Handle, onUpdate UpdateFunc) (*models.Data, error) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	current := h.Snapshot()
	w.observe(ctx, current, onUpdate)
	if current.Done() {
		return current, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.interval
	b.MaxInterval = w.maxInterval
	b.MaxElapsedTime = 0
	b.Reset()

	timer := time.NewTimer(b.NextBackOff())
	defer timer.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return current, fmt.Errorf("stopped waiting for data %d in status %s: %w", h.ID(), current.Status, ctx.Err())
		case <-timer.C:
		}

		next, err := w.tracker.Refresh(ctx, h)
		switch {
		case err == nil:
			failures = 0
			if changed(current, next) {
				b.Reset()
				w.observe(ctx, next, onUpdate)
			}
			current = next
			if current.Done() {
				return current, nil
			}
		case transient(err) && ctx.Err() == nil:
			failures++
			w.logger.Error("refresh failed", "id", h.ID(), "attempt", failures, "error", err)
			if failures >= w.maxFailures {
				return current, fmt.Errorf("failed to refresh data %d after %d attempts: %w", h.ID(), failures, err)
			}
		default:
			return current, err
		}
		timer.Reset(b.NextBackOff())
	}
}

func (w *Watcher) observe(ctx context.Context, d *models.Data, onUpdate UpdateFunc) {
	w.logger.Debug("data snapshot", "id", d.ID, "status", d.Status, "progress", d.Progress)
	if onUpdate != nil {
		onUpdate(d)
	}
	if w.journal == nil {
		return
	}
	if err := w.journal.Record(ctx, repository.NewSnapshot(uuid.NewString(), d, w.now())); err != nil {
		w.logger.Error("failed to journal snapshot", "id", d.ID, "error", err)
	}
}

func changed(prev, next *models.Data) bool {
	return prev.Status != next.Status || prev.Progress != next.Progress || !prev.Modified.Equal(next.Modified)
}

func transient(err error) bool {
	if errdefs.IsTransport(err) {
		return true
	}
	var rerr *errdefs.RemoteError
	return errors.As(err, &rerr) && rerr.ServerFault()
}

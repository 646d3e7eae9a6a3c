package repository

import (
	"container/list"
	"context"
	"sync"
)

const (
	defaultMaxObjects  = 1024
	defaultMaxSnapshot = 256
)

// MemorySnapshotStore keeps the journal in process memory. It backs the CLI
// and tests when no database is configured. The store is bounded: once it
// holds maxObjects data objects the one recorded least recently is evicted,
// and each object keeps only its newest maxSnapshots entries.
type MemorySnapshotStore struct {
	mu           sync.RWMutex
	entries      map[int]*list.Element
	order        *list.List
	maxObjects   int
	maxSnapshots int
}

type memoryEntry struct {
	dataID    int
	snapshots []*Snapshot
}

// MemoryOption configures a MemorySnapshotStore.
type MemoryOption func(*MemorySnapshotStore)

// WithMaxObjects bounds the number of data objects kept.
func WithMaxObjects(n int) MemoryOption {
	return func(s *MemorySnapshotStore) {
		if n > 0 {
			s.maxObjects = n
		}
	}
}

// WithMaxSnapshots bounds the history kept per data object.
func WithMaxSnapshots(n int) MemoryOption {
	return func(s *MemorySnapshotStore) {
		if n > 0 {
			s.maxSnapshots = n
		}
	}
}

func NewMemorySnapshotStore(opts ...MemoryOption) *MemorySnapshotStore {
	s := &MemorySnapshotStore{
		entries:      make(map[int]*list.Element),
		order:        list.New(),
		maxObjects:   defaultMaxObjects,
		maxSnapshots: defaultMaxSnapshot,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemorySnapshotStore) Migrate(context.Context) error { return nil }

func (s *MemorySnapshotStore) Record(_ context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[snap.DataID]
	if ok {
		s.order.MoveToFront(el)
	} else {
		el = s.order.PushFront(&memoryEntry{dataID: snap.DataID})
		s.entries[snap.DataID] = el
	}
	entry := el.Value.(*memoryEntry)
	entry.snapshots = append(entry.snapshots, snap)
	if over := len(entry.snapshots) - s.maxSnapshots; over > 0 {
		entry.snapshots = append([]*Snapshot(nil), entry.snapshots[over:]...)
	}

	for s.order.Len() > s.maxObjects {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(*memoryEntry).dataID)
	}
	return nil
}

func (s *MemorySnapshotStore) Latest(_ context.Context, dataID int) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snaps := s.snapshots(dataID)
	if len(snaps) == 0 {
		return nil, ErrNoSnapshot
	}
	return snaps[len(snaps)-1], nil
}

func (s *MemorySnapshotStore) History(_ context.Context, dataID int) ([]*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Snapshot(nil), s.snapshots(dataID)...), nil
}

// Len returns the number of data objects held.
func (s *MemorySnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Len()
}

func (s *MemorySnapshotStore) snapshots(dataID int) []*Snapshot {
	el, ok := s.entries[dataID]
	if !ok {
		return nil
	}
	return el.Value.(*memoryEntry).snapshots
}

func (s *MemorySnapshotStore) Ping(context.Context) error { return nil }

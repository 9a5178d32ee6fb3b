package status

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryTracker keeps lifecycle records in process memory. State is lost
// on restart, which is acceptable for single-node deployments; use the
// Postgres tracker when records must survive.
type MemoryTracker struct {
	mu      sync.RWMutex
	records map[uuid.UUID]Record
}

func NewMemory() *MemoryTracker {
	return &MemoryTracker{records: make(map[uuid.UUID]Record)}
}

func (t *MemoryTracker) Create(_ context.Context, id uuid.UUID, filename string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.records[id] = Record{ID: id, Filename: filename, State: StatePending, CreatedAt: now, UpdatedAt: now}
	return nil
}

func (t *MemoryTracker) SetState(_ context.Context, id uuid.UUID, state State) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[id]
	if !ok {
		return ErrUnknownDocument
	}
	rec.State = state
	rec.UpdatedAt = time.Now()
	t.records[id] = rec
	return nil
}

func (t *MemoryTracker) Get(_ context.Context, id uuid.UUID) (Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.records[id]
	if !ok {
		return Record{}, ErrUnknownDocument
	}
	return rec, nil
}

func (t *MemoryTracker) Close() error { return nil }

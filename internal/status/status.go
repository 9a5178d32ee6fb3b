// Package status records the lifecycle of each ingested document. The
// tracker is observability state: the index remains the source of truth
// for what is searchable.
package status

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// State is a document's lifecycle state.
type State string

const (
	// StatePending means the blob is stored and extraction is in flight.
	StatePending State = "pending"
	// StateIndexed means the content is persisted and visible to search.
	StateIndexed State = "indexed"
	// StateFailed means extraction or indexing failed; no record exists.
	StateFailed State = "failed"
	// StateDeleted means an explicit delete removed the document.
	StateDeleted State = "deleted"
)

// ErrUnknownDocument is returned for ids that were never ingested.
var ErrUnknownDocument = errors.New("unknown document")

// Record is one document's tracked lifecycle entry.
type Record struct {
	ID        uuid.UUID
	Filename  string
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tracker persists lifecycle records.
type Tracker interface {
	Create(ctx context.Context, id uuid.UUID, filename string) error
	SetState(ctx context.Context, id uuid.UUID, state State) error
	Get(ctx context.Context, id uuid.UUID) (Record, error)
	Close() error
}

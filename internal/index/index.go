// Package index persists document records and runs keyword match queries
// with highlighting against a single logical full-text index.
package index

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxFragments bounds how many highlighted snippets a match query
	// produces for one document.
	MaxFragments = 50

	// FragmentSize is the target snippet length in bytes.
	FragmentSize = 200
)

// Document is the indexed record for one ingested file. Content is the
// extracted plain text; a document only exists in the index once
// extraction has succeeded.
type Document struct {
	ID         uuid.UUID
	Filename   string
	Content    string
	UploadedAt time.Time
}

// MatchResult is the outcome of a keyword query scoped to one document.
// When the document matches but the highlighter produced no fragments,
// Fragments is empty and Content carries the stored body so the caller
// can fall back to it.
type MatchResult struct {
	Found     bool
	Fragments []string
	Content   string
}

// Store is the full-text index contract. Writes become observable to
// Match only after Refresh returns; implementations with synchronous
// visibility satisfy Refresh trivially.
type Store interface {
	// EnsureReady creates the index and its mapping if missing. Idempotent;
	// called once at startup and retried only on init failure.
	EnsureReady(ctx context.Context) error

	Save(ctx context.Context, doc Document) error
	Get(ctx context.Context, id uuid.UUID) (Document, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Refresh makes preceding writes visible to subsequent queries. It
	// blocks until visibility is guaranteed.
	Refresh(ctx context.Context) error

	// Match runs a content match query combined with an exact-id filter,
	// highlighting up to MaxFragments fragments of FragmentSize bytes.
	Match(ctx context.Context, id uuid.UUID, keyword string) (MatchResult, error)

	Close() error
}

// Package cache provides search result caching.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Cache stores rendered search pages keyed by document, keyword, and
// page window. Entries for a document are invalidated together when it
// is indexed or deleted.
type Cache interface {
	// GetSearchPage retrieves a cached page by key. Returns nil on miss.
	GetSearchPage(ctx context.Context, key string) (*SearchPage, error)

	// SetSearchPage stores a page with TTL.
	SetSearchPage(ctx context.Context, key string, page *SearchPage, ttl time.Duration) error

	// InvalidateDocument removes all cached pages for a document.
	InvalidateDocument(ctx context.Context, docID string) error

	// Close closes the cache connection.
	Close() error
}

// SearchPage is a cached search response page.
type SearchPage struct {
	Snippets   []string `json:"snippets"`
	TotalFound int64    `json:"total_found"`
	TotalPages int      `json:"total_pages"`
}

// Key builds a cache key scoped by document id so invalidation can
// target one document's entries. The keyword is hashed to keep keys
// bounded and free of separator characters.
func Key(docID, keyword string, page, size int) string {
	sum := sha256.Sum256([]byte(keyword))
	return fmt.Sprintf("%s:%s:%d:%d", docID, hex.EncodeToString(sum[:8]), page, size)
}

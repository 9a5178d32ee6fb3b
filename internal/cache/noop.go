package cache

import (
	"context"
	"time"
)

// NoOpCache is a cache implementation that does nothing. Used when no
// Redis is configured - all operations succeed but every lookup is a
// miss.
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// GetSearchPage always returns nil (cache miss).
func (c *NoOpCache) GetSearchPage(ctx context.Context, key string) (*SearchPage, error) {
	return nil, nil
}

// SetSearchPage does nothing and always succeeds.
func (c *NoOpCache) SetSearchPage(ctx context.Context, key string, page *SearchPage, ttl time.Duration) error {
	return nil
}

// InvalidateDocument does nothing and always succeeds.
func (c *NoOpCache) InvalidateDocument(ctx context.Context, docID string) error {
	return nil
}

// Close does nothing and always succeeds.
func (c *NoOpCache) Close() error {
	return nil
}

// Package blob stores document payloads by derived object key.
package blob

import "context"

// Store is the blob storage contract. Keys come from ObjectKey so the
// upload, download, and delete paths always address the same object.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}

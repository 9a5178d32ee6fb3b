package blob

import (
	"context"
	"os"
	"path/filepath"

	"pdf-search/internal/apperr"
)

// FSStore keeps blobs as plain files under a base directory. Intended for
// local development and tests; production deployments use the MinIO store.
type FSStore struct {
	dir string
}

// NewFS creates the base directory if needed and returns a filesystem store.
func NewFS(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.KindBlobStore, err, "failed to create blob directory %s", dir)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) path(key string) string {
	// Keys are derived from sanitized base names, but never trust them as paths.
	return filepath.Join(s.dir, filepath.Base(key))
}

func (s *FSStore) Put(_ context.Context, key string, data []byte, _ string) error {
	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		return apperr.Wrap(apperr.KindBlobStore, err, "failed to store blob %s", key)
	}
	return nil
}

func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBlobStore, err, "failed to read blob %s", key)
	}
	return data, nil
}

func (s *FSStore) Delete(_ context.Context, key string) error {
	path := s.path(key)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return apperr.New(apperr.KindBlobStore, "blob not found: %s", key)
	}
	if err := os.Remove(path); err != nil {
		return apperr.Wrap(apperr.KindBlobStore, err, "failed to delete blob %s", key)
	}
	return nil
}

func (s *FSStore) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Wrap(apperr.KindBlobStore, err, "failed to stat blob %s", key)
	}
	return true, nil
}

func (s *FSStore) Close() error { return nil }

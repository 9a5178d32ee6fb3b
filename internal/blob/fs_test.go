package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-search/internal/apperr"
)

func TestFSStoreRoundTrip(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := "report-abc.pdf"
	payload := []byte("%PDF-1.4 fake payload")

	require.NoError(t, s.Put(ctx, key, payload, "application/pdf"))

	exists, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	require.NoError(t, s.Delete(ctx, key))

	exists, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFSStoreGetMissing(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "nope.pdf")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindBlobStore))
}

func TestFSStoreDeleteMissing(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)

	err = s.Delete(context.Background(), "nope.pdf")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindBlobStore))
}

func TestFSStoreOverwrite(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k.pdf", []byte("one"), "application/pdf"))
	require.NoError(t, s.Put(ctx, "k.pdf", []byte("two"), "application/pdf"))

	got, err := s.Get(ctx, "k.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)
}

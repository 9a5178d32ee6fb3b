package blob

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-search/internal/apperr"
)

func TestObjectKey(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"simple", "report.pdf", "report-" + id.String() + ".pdf"},
		{"multiple dots strips only last", "report.v2.pdf", "report.v2-" + id.String() + ".pdf"},
		{"no extension", "report", "report-" + id.String() + ".pdf"},
		{"path is ignored", "uploads/2024/report.pdf", "report-" + id.String() + ".pdf"},
		{"uppercase extension", "Report.PDF", "Report-" + id.String() + ".pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ObjectKey(tt.filename, id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestObjectKeyEmptyFilename(t *testing.T) {
	_, err := ObjectKey("", uuid.New())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidFileType))
}

// The same filename and id must always resolve to the same key; upload,
// download, and delete depend on it.
func TestObjectKeyStable(t *testing.T) {
	id := uuid.New()
	first, err := ObjectKey("thesis.final.pdf", id)
	require.NoError(t, err)
	second, err := ObjectKey("thesis.final.pdf", id)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

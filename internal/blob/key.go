package blob

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"pdf-search/internal/apperr"
)

// ObjectKey derives the object store key for a document from its original
// filename and id: the base name minus its final extension, the id, and a
// ".pdf" suffix. Only the last ".ext" segment is stripped, so
// "report.v2.pdf" becomes "report.v2-<id>.pdf". Upload, download, and
// delete must all resolve keys through this function.
func ObjectKey(filename string, id uuid.UUID) (string, error) {
	base := filepath.Base(filename)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", apperr.InvalidFileType("filename must not be empty")
	}
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base + "-" + id.String() + ".pdf", nil
}

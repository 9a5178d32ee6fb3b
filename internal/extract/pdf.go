package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"pdf-search/internal/apperr"
)

// PDFExtractor extracts text using the ledongthuc/pdf reader.
type PDFExtractor struct{}

func NewPDF() *PDFExtractor { return &PDFExtractor{} }

// Text extracts plain text from all pages. Pages that fail to decode are
// skipped; a document where no page yields text is still valid (scanned
// PDFs have no text layer).
func (e *PDFExtractor) Text(_ context.Context, data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperr.Wrap(apperr.KindExtraction, err, "failed to open PDF")
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// recoverText wraps Text so a panic inside the PDF parser surfaces as an
// extraction error instead of killing the worker.
func recoverText(e Extractor, ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperr.New(apperr.KindExtraction, "PDF parser panic: %v", r)
		}
	}()
	return e.Text(ctx, data)
}

// Safe returns an Extractor that converts parser panics into errors.
func Safe(e Extractor) Extractor { return safeExtractor{inner: e} }

type safeExtractor struct{ inner Extractor }

func (s safeExtractor) Text(ctx context.Context, data []byte) (string, error) {
	text, err := recoverText(s.inner, ctx, data)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return text, nil
}

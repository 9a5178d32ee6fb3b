package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"

	"pdf-search/internal/apperr"
)

// BleveStore is a Store backed by a bleve index. An empty path keeps the
// index in memory, which tests rely on.
type BleveStore struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	log    *slog.Logger
	closed bool
}

// NewBleve returns a store for the index at path without opening it.
// Callers run EnsureReady before the first write or query; keeping
// initialization out of the constructor lets startup retry it with
// backoff instead of dying on the first failure.
func NewBleve(log *slog.Logger, path string) *BleveStore {
	return &BleveStore{path: path, log: log, closed: true}
}

// EnsureReady opens the index, creating it with the document mapping when
// it does not exist yet. Safe to call repeatedly; an already-open index
// is left alone.
func (s *BleveStore) EnsureReady(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed && s.index != nil {
		return nil
	}

	idx, err := openOrCreate(s.path)
	if err != nil {
		return apperr.Wrap(apperr.KindIndexInit, err, "failed to initialize index")
	}
	s.index = idx
	s.closed = false
	s.log.Info("index ready", "path", s.path)
	return nil
}

func openOrCreate(path string) (bleve.Index, error) {
	m := documentMapping()
	if path == "" {
		return bleve.NewMemOnly(m)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		return bleve.New(path, m)
	}
	return idx, err
}

// documentMapping indexes content as analyzed text and keeps filename and
// uploaded_at as stored fields for exact retrieval.
func documentMapping() *mapping.IndexMappingImpl {
	content := bleve.NewTextFieldMapping()
	content.Store = true
	content.IncludeTermVectors = true // needed for match locations

	filename := bleve.NewTextFieldMapping()
	filename.Analyzer = keyword.Name
	filename.Store = true

	uploadedAt := bleve.NewDateTimeFieldMapping()
	uploadedAt.Store = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("content", content)
	doc.AddFieldMappingsAt("filename", filename)
	doc.AddFieldMappingsAt("uploaded_at", uploadedAt)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	return im
}

func (s *BleveStore) Save(_ context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return apperr.New(apperr.KindIndexWrite, "index is closed")
	}
	record := map[string]interface{}{
		"filename":    doc.Filename,
		"content":     doc.Content,
		"uploaded_at": doc.UploadedAt,
	}
	if err := s.index.Index(doc.ID.String(), record); err != nil {
		return apperr.Wrap(apperr.KindIndexWrite, err, "failed to index document %s", doc.ID)
	}
	return nil
}

func (s *BleveStore) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Document{}, apperr.New(apperr.KindSearch, "index is closed")
	}

	q := bleve.NewDocIDQuery([]string{id.String()})
	req := bleve.NewSearchRequest(q)
	req.Size = 1
	req.Fields = []string{"filename", "content", "uploaded_at"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return Document{}, apperr.Wrap(apperr.KindSearch, err, "failed to look up document %s", id)
	}
	if len(res.Hits) == 0 {
		return Document{}, apperr.NotFound(id)
	}

	fields := res.Hits[0].Fields
	doc := Document{
		ID:       id,
		Filename: stringField(fields, "filename"),
		Content:  stringField(fields, "content"),
	}
	if raw := stringField(fields, "uploaded_at"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			doc.UploadedAt = ts
		}
	}
	return doc, nil
}

func (s *BleveStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return apperr.New(apperr.KindIndexWrite, "index is closed")
	}
	if err := s.index.Delete(id.String()); err != nil {
		return apperr.Wrap(apperr.KindIndexWrite, err, "failed to delete document %s", id)
	}
	return nil
}

// Refresh blocks until preceding writes are observable by queries. Bleve
// commits synchronously, so taking the write lock is enough to order this
// call after any in-flight Save or Delete.
func (s *BleveStore) Refresh(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return apperr.New(apperr.KindIndexWrite, "index is closed")
	}
	return nil
}

func (s *BleveStore) Match(ctx context.Context, id uuid.UUID, keyword string) (MatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return MatchResult{}, apperr.New(apperr.KindSearch, "index is closed")
	}

	match := bleve.NewMatchQuery(keyword)
	match.SetField("content")
	idFilter := bleve.NewDocIDQuery([]string{id.String()})
	q := bleve.NewConjunctionQuery(match, idFilter)

	req := bleve.NewSearchRequest(q)
	req.Size = 1
	req.Fields = []string{"content"}
	req.IncludeLocations = true

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return MatchResult{}, apperr.Wrap(apperr.KindSearch, err, "failed to search for %q in document %s", keyword, id)
	}
	if len(res.Hits) == 0 {
		return MatchResult{}, nil
	}

	hit := res.Hits[0]
	content := stringField(hit.Fields, "content")
	fragments := buildFragments(content, hit.Locations["content"], MaxFragments, FragmentSize)
	return MatchResult{Found: true, Fragments: fragments, Content: content}, nil
}

func (s *BleveStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.index != nil {
		return s.index.Close()
	}
	return nil
}

func stringField(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

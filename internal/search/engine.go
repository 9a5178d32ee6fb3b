// Package search executes id-scoped keyword queries and paginates the
// highlighted fragments.
package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"pdf-search/internal/apperr"
	"pdf-search/internal/cache"
	"pdf-search/internal/index"
)

// Result is one snippet of document text surrounding a keyword match.
type Result struct {
	Snippet string `json:"snippet"`
}

// Response is a page of snippets plus totals over the whole fragment
// list. TotalPages is zero when nothing matched.
type Response struct {
	Results    []Result `json:"results"`
	TotalFound int64    `json:"totalFound"`
	TotalPages int      `json:"totalPages"`
}

// Engine runs keyword searches against one document at a time. The match
// query is always combined with an exact-id filter, so keywords present
// in other documents never leak into a response.
type Engine struct {
	log   *slog.Logger
	index index.Store
	cache cache.Cache
	ttl   time.Duration
}

func NewEngine(log *slog.Logger, idx index.Store, c cache.Cache, ttl time.Duration) *Engine {
	return &Engine{log: log, index: idx, cache: c, ttl: ttl}
}

// Search returns the requested page of highlighted fragments for keyword
// within document id. A keyword that simply is not present yields an
// empty response, not an error; an unknown id is DocumentNotFound.
func (e *Engine) Search(ctx context.Context, id uuid.UUID, keyword string, page, size int) (Response, error) {
	if strings.TrimSpace(keyword) == "" {
		return Response{}, apperr.New(apperr.KindInvalidQuery, "search keyword must not be empty")
	}
	if page < 0 {
		return Response{}, apperr.New(apperr.KindInvalidQuery, "page number must be >= 0, got %d", page)
	}
	if size <= 0 {
		return Response{}, apperr.New(apperr.KindInvalidQuery, "page size must be > 0, got %d", size)
	}

	// The document must exist before the query runs; "no such document"
	// and "keyword not present" are different answers.
	if _, err := e.index.Get(ctx, id); err != nil {
		return Response{}, err
	}

	key := cache.Key(id.String(), keyword, page, size)
	if cached, err := e.cache.GetSearchPage(ctx, key); err != nil {
		e.log.Warn("search cache lookup failed", "err", err, "document_id", id)
	} else if cached != nil {
		return fromPage(cached), nil
	}

	match, err := e.index.Match(ctx, id, keyword)
	if err != nil {
		return Response{}, err
	}

	resp := paginate(fragmentsOf(match), page, size)

	if err := e.cache.SetSearchPage(ctx, key, toPage(resp), e.ttl); err != nil {
		e.log.Warn("search cache store failed", "err", err, "document_id", id)
	}
	return resp, nil
}

// fragmentsOf returns the ordered snippet list for a match. A matching
// document with no highlighter fragments falls back to the whole body as
// a single snippet: the match existed even if the highlighter produced
// nothing.
func fragmentsOf(m index.MatchResult) []string {
	if !m.Found {
		return nil
	}
	if len(m.Fragments) == 0 {
		return []string{m.Content}
	}
	return m.Fragments
}

// paginate slices the fragment list locally. A page past the end yields
// an empty result list with unchanged totals. Arithmetic is ordered so
// huge page or size values cannot overflow: page*size is only computed
// when page < totalPages, which bounds the product below total.
func paginate(fragments []string, page, size int) Response {
	total := len(fragments)
	if total == 0 {
		return Response{Results: []Result{}}
	}

	totalPages := total / size
	if total%size != 0 {
		totalPages++
	}

	start := total
	if page < totalPages {
		start = page * size
	}
	end := start + size
	if end > total || end < start {
		end = total
	}

	results := make([]Result, 0, end-start)
	for _, f := range fragments[start:end] {
		results = append(results, Result{Snippet: f})
	}
	return Response{Results: results, TotalFound: int64(total), TotalPages: totalPages}
}

func toPage(resp Response) *cache.SearchPage {
	snippets := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		snippets = append(snippets, r.Snippet)
	}
	return &cache.SearchPage{Snippets: snippets, TotalFound: resp.TotalFound, TotalPages: resp.TotalPages}
}

func fromPage(page *cache.SearchPage) Response {
	results := make([]Result, 0, len(page.Snippets))
	for _, s := range page.Snippets {
		results = append(results, Result{Snippet: s})
	}
	return Response{Results: results, TotalFound: page.TotalFound, TotalPages: page.TotalPages}
}

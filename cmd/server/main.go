package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pdf-search/internal/app"
	"pdf-search/internal/apperr"
	"pdf-search/internal/httputil"
	"pdf-search/internal/ingest"
	"pdf-search/internal/retry"
	"pdf-search/internal/search"
	"pdf-search/internal/status"
	"pdf-search/internal/task"
)

const indexReadyAttempts = 5

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ensureIndexReady(ctx, deps); err != nil {
		deps.Log.Error("index never became ready", "err", err)
		os.Exit(1)
	}

	coord := ingest.NewCoordinator(deps.Log, deps.Index, deps.Blobs, deps.Extractor, deps.Queue, deps.Status, deps.Cache)
	if dn, ok := deps.Queue.(task.DropNotifier); ok {
		dn.OnDrop(coord.HandleDrop)
	}
	engine := search.NewEngine(deps.Log, deps.Index, deps.Cache, deps.Config.CacheTTL)

	r := httputil.NewRouter(deps.Log)
	r.Post("/file/upload", uploadHandler(deps, coord))
	r.Get("/file/{id}/search", searchHandler(deps, engine))
	r.Get("/file/{id}/download", downloadHandler(deps, coord))
	r.Get("/file/{id}/status", statusHandler(deps, coord))
	r.Delete("/file/{id}", deleteHandler(deps, coord))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", deps.Config.Port),
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < deps.Config.Workers; i++ {
		g.Go(func() error {
			return deps.Queue.Worker(gctx, task.TypeExtract, coord.HandleExtract)
		})
	}
	g.Go(func() error {
		deps.Log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		deps.Log.Error("server failed", "err", err)
		os.Exit(1)
	}
	deps.Log.Info("server stopped")
}

// ensureIndexReady retries index initialization with backoff so a slow
// volume mount does not kill the process at boot.
func ensureIndexReady(ctx context.Context, deps app.Deps) error {
	var err error
	for attempt := 0; attempt < indexReadyAttempts; attempt++ {
		if err = deps.Index.EnsureReady(ctx); err == nil {
			return nil
		}
		deps.Log.Warn("index not ready", "err", err, "attempt", attempt+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry.ExponentialBackoff(attempt, 500*time.Millisecond, 10*time.Second)):
		}
	}
	return err
}

func uploadHandler(deps app.Deps, coord *ingest.Coordinator) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// Reject oversized uploads before parsing the multipart body.
		if r.ContentLength > maxFileSize {
			httputil.WriteError(deps.Log, w, apperr.InvalidFileType(fmt.Sprintf("file too large (max %d bytes)", maxFileSize)))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxFileSize)

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.WriteError(deps.Log, w, apperr.InvalidFileType("file is required"))
			return
		}
		defer file.Close()

		if header.Size > maxFileSize {
			httputil.WriteError(deps.Log, w, apperr.InvalidFileType(fmt.Sprintf("file too large (max %d bytes)", maxFileSize)))
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			httputil.WriteError(deps.Log, w, apperr.Wrap(apperr.KindBlobStore, err, "failed to read file"))
			return
		}

		contentType := header.Header.Get("Content-Type")
		// If Content-Type is missing, detect from filename.
		if contentType == "" && strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
			contentType = "application/pdf"
		}

		id, err := coord.Ingest(ctx, data, header.Filename, contentType)
		if err != nil {
			httputil.WriteError(deps.Log, w, err)
			return
		}

		// 202: extraction and indexing happen in the background.
		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"id":       id,
			"filename": header.Filename,
		})
	}
}

// searchParams is the query-string contract for the search endpoint.
type searchParams struct {
	Keyword string `validate:"required"`
	Page    int    `validate:"gte=0"`
	Size    int    `validate:"gt=0"`
}

func searchHandler(deps app.Deps, engine *search.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(deps, w, r)
		if !ok {
			return
		}

		params := searchParams{
			Keyword: r.URL.Query().Get("query"),
			Page:    0,
			Size:    10,
		}
		var err error
		if raw := r.URL.Query().Get("page"); raw != "" {
			if params.Page, err = strconv.Atoi(raw); err != nil {
				httputil.WriteError(deps.Log, w, apperr.New(apperr.KindInvalidQuery, "page must be an integer"))
				return
			}
		}
		if raw := r.URL.Query().Get("size"); raw != "" {
			if params.Size, err = strconv.Atoi(raw); err != nil {
				httputil.WriteError(deps.Log, w, apperr.New(apperr.KindInvalidQuery, "size must be an integer"))
				return
			}
		}
		if err := httputil.Validator.Struct(&params); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		resp, err := engine.Search(r.Context(), id, params.Keyword, params.Page, params.Size)
		if err != nil {
			httputil.WriteError(deps.Log, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

func downloadHandler(deps app.Deps, coord *ingest.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(deps, w, r)
		if !ok {
			return
		}

		data, filename, err := coord.Download(r.Context(), id)
		if err != nil {
			httputil.WriteError(deps.Log, w, err)
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if _, err := w.Write(data); err != nil {
			deps.Log.Warn("download write failed", "err", err, "document_id", id)
		}
	}
}

func statusHandler(deps app.Deps, coord *ingest.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(deps, w, r)
		if !ok {
			return
		}

		rec, err := coord.Status(r.Context(), id)
		if err != nil {
			if errors.Is(err, status.ErrUnknownDocument) {
				err = apperr.NotFound(id)
			}
			httputil.WriteError(deps.Log, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"id":         rec.ID,
			"filename":   rec.Filename,
			"status":     rec.State,
			"created_at": rec.CreatedAt,
			"updated_at": rec.UpdatedAt,
		})
	}
}

func deleteHandler(deps app.Deps, coord *ingest.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(deps, w, r)
		if !ok {
			return
		}

		if err := coord.Delete(r.Context(), id); err != nil {
			httputil.WriteError(deps.Log, w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Deleted file with id: %s", id)
	}
}

func parseID(deps app.Deps, w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(deps.Log, w, apperr.New(apperr.KindInvalidQuery, "invalid document id"))
		return uuid.Nil, false
	}
	return id, true
}

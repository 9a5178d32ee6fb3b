// Package ingest coordinates document intake: identity, blob storage,
// and the asynchronous extraction-and-index step.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"pdf-search/internal/apperr"
	"pdf-search/internal/blob"
	"pdf-search/internal/cache"
	"pdf-search/internal/extract"
	"pdf-search/internal/index"
	"pdf-search/internal/status"
	"pdf-search/internal/task"
)

const (
	pdfContentType  = "application/pdf"
	enqueueAttempts = 3
	extractAttempts = 5
)

// extractPayload travels through the task queue; File is base64-encoded
// by JSON marshaling.
type extractPayload struct {
	DocumentID uuid.UUID `json:"document_id"`
	Filename   string    `json:"filename"`
	File       []byte    `json:"file"`
}

// Coordinator owns document identity and lifecycle. Uploads return an id
// before extraction runs; the id stays invisible to lookups until the
// background task has indexed the content and refreshed visibility.
type Coordinator struct {
	log       *slog.Logger
	index     index.Store
	blobs     blob.Store
	extractor extract.Extractor
	queue     task.Queue
	tracker   status.Tracker
	cache     cache.Cache
}

func NewCoordinator(
	log *slog.Logger,
	idx index.Store,
	blobs blob.Store,
	extractor extract.Extractor,
	queue task.Queue,
	tracker status.Tracker,
	c cache.Cache,
) *Coordinator {
	return &Coordinator{
		log:       log,
		index:     idx,
		blobs:     blobs,
		extractor: extractor,
		queue:     queue,
		tracker:   tracker,
		cache:     c,
	}
}

// Ingest validates the upload, mints an id, stores the blob, and
// schedules extraction. It returns as soon as the task is queued; the
// caller must tolerate a window where the id is not yet searchable.
func (c *Coordinator) Ingest(ctx context.Context, data []byte, filename, contentType string) (uuid.UUID, error) {
	if contentType != pdfContentType {
		return uuid.Nil, apperr.InvalidFileType("invalid file type, only PDFs are allowed")
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return uuid.Nil, apperr.InvalidFileType("filename must end in .pdf")
	}
	if len(data) == 0 {
		return uuid.Nil, apperr.InvalidFileType("file must not be empty")
	}

	id := uuid.New()
	key, err := blob.ObjectKey(filename, id)
	if err != nil {
		return uuid.Nil, err
	}

	if err := c.tracker.Create(ctx, id, filename); err != nil {
		c.log.Error("failed to record pending document", "err", err, "document_id", id)
	}

	if err := c.blobs.Put(ctx, key, data, contentType); err != nil {
		c.markFailed(ctx, id)
		return uuid.Nil, err
	}

	payload, err := json.Marshal(extractPayload{DocumentID: id, Filename: filename, File: data})
	if err != nil {
		c.markFailed(ctx, id)
		return uuid.Nil, apperr.Wrap(apperr.KindExtraction, err, "failed to encode extraction task for document %s", id)
	}
	t := task.Task{Type: task.TypeExtract, Payload: payload, MaxAttempts: extractAttempts}
	if err := task.EnqueueWithRetry(ctx, c.queue, t, enqueueAttempts, 200*time.Millisecond); err != nil {
		c.markFailed(ctx, id)
		return uuid.Nil, apperr.Wrap(apperr.KindExtraction, err, "failed to schedule extraction for document %s", id)
	}

	c.log.Info("document accepted", "document_id", id, "filename", filename, "bytes", len(data))
	return id, nil
}

// HandleExtract is the queue handler for the extraction-and-index step.
// It runs on a worker, never on the request path; its errors are
// reported through logging and the lifecycle tracker, not to the
// original uploader. Returning an error requeues the task; extraction
// failures are terminal and return nil.
func (c *Coordinator) HandleExtract(ctx context.Context, t task.Task) error {
	var payload extractPayload
	if err := json.Unmarshal(t.Payload, &payload); err != nil {
		c.log.Error("failed to decode extraction task", "err", err, "task_id", t.ID)
		return nil
	}
	id := payload.DocumentID
	log := c.log.With("document_id", id)

	text, err := c.extractor.Text(ctx, payload.File)
	if err != nil {
		// A malformed PDF never gets better; do not retry, do not index.
		log.Error("failed to extract text", "err", err, "filename", payload.Filename)
		c.markFailed(ctx, id)
		return nil
	}

	doc := index.Document{
		ID:         id,
		Filename:   payload.Filename,
		Content:    text,
		UploadedAt: time.Now().UTC(),
	}
	if err := c.index.Save(ctx, doc); err != nil {
		return c.retryOrFail(ctx, t, id, err, "failed to index document")
	}
	if err := c.index.Refresh(ctx); err != nil {
		return c.retryOrFail(ctx, t, id, err, "failed to refresh index visibility")
	}

	if err := c.tracker.SetState(ctx, id, status.StateIndexed); err != nil {
		log.Error("failed to mark document indexed", "err", err)
	}
	if err := c.cache.InvalidateDocument(ctx, id.String()); err != nil {
		log.Warn("failed to invalidate cached searches", "err", err)
	}
	log.Info("document processed and indexed", "filename", payload.Filename, "content_bytes", len(text))
	return nil
}

// HandleDrop records a document as failed when the queue abandons its
// extraction task, so the id does not stay pending forever.
func (c *Coordinator) HandleDrop(ctx context.Context, t task.Task, err error) {
	var payload extractPayload
	if derr := json.Unmarshal(t.Payload, &payload); derr != nil {
		c.log.Error("failed to decode abandoned task", "err", derr, "task_id", t.ID)
		return
	}
	c.log.Error("extraction task abandoned", "err", err, "document_id", payload.DocumentID, "attempts", t.Attempts)
	c.markFailed(ctx, payload.DocumentID)
}

// retryOrFail returns the error for requeue, or marks the document
// failed when this was the last attempt.
func (c *Coordinator) retryOrFail(ctx context.Context, t task.Task, id uuid.UUID, err error, message string) error {
	c.log.Error(message, "err", err, "document_id", id, "attempt", t.Attempts+1)
	if t.MaxAttempts > 0 && t.Attempts+1 >= t.MaxAttempts {
		c.markFailed(ctx, id)
	}
	return err
}

func (c *Coordinator) markFailed(ctx context.Context, id uuid.UUID) {
	if err := c.tracker.SetState(ctx, id, status.StateFailed); err != nil {
		c.log.Error("failed to mark document failed", "err", err, "document_id", id)
	}
}

// Filename returns the stored original filename. Ids that are pending,
// failed, or unknown all report DocumentNotFound.
func (c *Coordinator) Filename(ctx context.Context, id uuid.UUID) (string, error) {
	doc, err := c.index.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return doc.Filename, nil
}

// Download fetches the original payload and its filename.
func (c *Coordinator) Download(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	doc, err := c.index.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	key, err := blob.ObjectKey(doc.Filename, id)
	if err != nil {
		return nil, "", err
	}
	data, err := c.blobs.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return data, doc.Filename, nil
}

// Delete removes the blob and the index record. Blob first, mirroring
// upload order; if the index delete then fails the blob is already gone
// and the record lingers until a retried delete succeeds. There is no
// compensating transaction.
func (c *Coordinator) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := c.index.Get(ctx, id)
	if err != nil {
		return err
	}
	key, err := blob.ObjectKey(doc.Filename, id)
	if err != nil {
		return err
	}

	if err := c.blobs.Delete(ctx, key); err != nil {
		return err
	}
	if err := c.index.Delete(ctx, id); err != nil {
		return err
	}
	if err := c.index.Refresh(ctx); err != nil {
		return err
	}

	if err := c.tracker.SetState(ctx, id, status.StateDeleted); err != nil {
		c.log.Error("failed to mark document deleted", "err", err, "document_id", id)
	}
	if err := c.cache.InvalidateDocument(ctx, id.String()); err != nil {
		c.log.Warn("failed to invalidate cached searches", "err", err, "document_id", id)
	}
	c.log.Info("document deleted", "document_id", id)
	return nil
}

// Status reports the lifecycle state for an id, including pending and
// failed ids that the document endpoints report as not found.
func (c *Coordinator) Status(ctx context.Context, id uuid.UUID) (status.Record, error) {
	return c.tracker.Get(ctx, id)
}

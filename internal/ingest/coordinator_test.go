package ingest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pdf-search/internal/apperr"
	"pdf-search/internal/blob"
	"pdf-search/internal/cache"
	"pdf-search/internal/extract"
	"pdf-search/internal/index"
	"pdf-search/internal/status"
	"pdf-search/internal/task"
)

type fixture struct {
	coord     *Coordinator
	index     *index.MockStore
	blobs     *blob.MockStore
	extractor *extract.MockExtractor
	queue     *task.MockQueue
	tracker   *status.MockTracker
	cache     *cache.MockCache
}

func newFixture() *fixture {
	f := &fixture{
		index:     new(index.MockStore),
		blobs:     new(blob.MockStore),
		extractor: new(extract.MockExtractor),
		queue:     new(task.MockQueue),
		tracker:   new(status.MockTracker),
		cache:     new(cache.MockCache),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.coord = NewCoordinator(log, f.index, f.blobs, f.extractor, f.queue, f.tracker, f.cache)
	return f
}

func TestIngestRejectsNonPDF(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		data        []byte
	}{
		{name: "wrong content type", filename: "report.pdf", contentType: "text/plain", data: []byte("x")},
		{name: "wrong extension", filename: "report.txt", contentType: "application/pdf", data: []byte("x")},
		{name: "empty payload", filename: "report.pdf", contentType: "application/pdf", data: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			id, err := f.coord.Ingest(context.Background(), tt.data, tt.filename, tt.contentType)

			assert.True(t, apperr.IsKind(err, apperr.KindInvalidFileType))
			assert.Equal(t, uuid.Nil, id)
			f.blobs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
		})
	}
}

func TestIngestStoresBlobAndEnqueues(t *testing.T) {
	f := newFixture()
	data := []byte("%PDF-1.4 fake")

	f.tracker.On("Create", mock.Anything, mock.Anything, "report.pdf").Return(nil)
	f.blobs.On("Put", mock.Anything, mock.Anything, data, "application/pdf").Return(nil)
	f.queue.On("Enqueue", mock.Anything, mock.Anything).Return(nil)

	id, err := f.coord.Ingest(context.Background(), data, "report.pdf", "application/pdf")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	// The blob key embeds the minted id.
	key := f.blobs.Calls[0].Arguments.String(1)
	assert.Equal(t, "report-"+id.String()+".pdf", key)

	// The queued payload carries id, filename, and original bytes.
	queued := f.queue.Calls[0].Arguments.Get(1).(task.Task)
	assert.Equal(t, task.TypeExtract, queued.Type)
	var payload extractPayload
	require.NoError(t, json.Unmarshal(queued.Payload, &payload))
	assert.Equal(t, id, payload.DocumentID)
	assert.Equal(t, "report.pdf", payload.Filename)
	assert.Equal(t, data, payload.File)

	// Extraction runs on a worker, never during the upload request.
	f.extractor.AssertNotCalled(t, "Text", mock.Anything, mock.Anything)
	f.index.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestIngestBlobFailureMarksFailed(t *testing.T) {
	f := newFixture()
	blobErr := apperr.New(apperr.KindBlobStore, "bucket unavailable")

	f.tracker.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.tracker.On("SetState", mock.Anything, mock.Anything, status.StateFailed).Return(nil)
	f.blobs.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(blobErr)

	_, err := f.coord.Ingest(context.Background(), []byte("x"), "report.pdf", "application/pdf")

	assert.True(t, apperr.IsKind(err, apperr.KindBlobStore))
	f.tracker.AssertCalled(t, "SetState", mock.Anything, mock.Anything, status.StateFailed)
	f.queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}

func TestIngestEnqueueFailureMarksFailed(t *testing.T) {
	f := newFixture()

	f.tracker.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.tracker.On("SetState", mock.Anything, mock.Anything, status.StateFailed).Return(nil)
	f.blobs.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.queue.On("Enqueue", mock.Anything, mock.Anything).Return(task.ErrQueueFull)

	_, err := f.coord.Ingest(context.Background(), []byte("x"), "report.pdf", "application/pdf")

	require.Error(t, err)
	f.tracker.AssertCalled(t, "SetState", mock.Anything, mock.Anything, status.StateFailed)
}

func extractTask(t *testing.T, id uuid.UUID, filename string, file []byte) task.Task {
	t.Helper()
	payload, err := json.Marshal(extractPayload{DocumentID: id, Filename: filename, File: file})
	require.NoError(t, err)
	return task.Task{ID: uuid.New(), Type: task.TypeExtract, Payload: payload, MaxAttempts: extractAttempts}
}

func TestHandleExtractIndexesDocument(t *testing.T) {
	f := newFixture()
	id := uuid.New()

	f.extractor.On("Text", mock.Anything, []byte("raw")).Return("the quick brown fox", nil)
	f.index.On("Save", mock.Anything, mock.MatchedBy(func(doc index.Document) bool {
		return doc.ID == id && doc.Filename == "report.pdf" && doc.Content == "the quick brown fox"
	})).Return(nil)
	f.index.On("Refresh", mock.Anything).Return(nil)
	f.tracker.On("SetState", mock.Anything, id, status.StateIndexed).Return(nil)
	f.cache.On("InvalidateDocument", mock.Anything, id.String()).Return(nil)

	err := f.coord.HandleExtract(context.Background(), extractTask(t, id, "report.pdf", []byte("raw")))

	require.NoError(t, err)
	f.index.AssertExpectations(t)
	f.tracker.AssertExpectations(t)
	f.cache.AssertExpectations(t)
}

func TestHandleExtractFailureIsTerminal(t *testing.T) {
	f := newFixture()
	id := uuid.New()

	f.extractor.On("Text", mock.Anything, mock.Anything).
		Return("", apperr.New(apperr.KindExtraction, "corrupted xref table"))
	f.tracker.On("SetState", mock.Anything, id, status.StateFailed).Return(nil)

	err := f.coord.HandleExtract(context.Background(), extractTask(t, id, "bad.pdf", []byte("junk")))

	// Terminal: nil keeps the queue from retrying a malformed PDF.
	assert.NoError(t, err)
	f.index.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.tracker.AssertCalled(t, "SetState", mock.Anything, id, status.StateFailed)
}

func TestHandleExtractIndexErrorRetries(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	indexErr := apperr.New(apperr.KindIndexWrite, "index unavailable")

	f.extractor.On("Text", mock.Anything, mock.Anything).Return("text", nil)
	f.index.On("Save", mock.Anything, mock.Anything).Return(indexErr)

	tk := extractTask(t, id, "report.pdf", []byte("raw"))
	err := f.coord.HandleExtract(context.Background(), tk)

	// Non-final attempt: error propagates for requeue, no failed state yet.
	assert.ErrorIs(t, err, indexErr)
	f.tracker.AssertNotCalled(t, "SetState", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleExtractIndexErrorFinalAttemptMarksFailed(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	indexErr := apperr.New(apperr.KindIndexWrite, "index unavailable")

	f.extractor.On("Text", mock.Anything, mock.Anything).Return("text", nil)
	f.index.On("Save", mock.Anything, mock.Anything).Return(indexErr)
	f.tracker.On("SetState", mock.Anything, id, status.StateFailed).Return(nil)

	tk := extractTask(t, id, "report.pdf", []byte("raw"))
	tk.Attempts = tk.MaxAttempts - 1

	err := f.coord.HandleExtract(context.Background(), tk)

	assert.ErrorIs(t, err, indexErr)
	f.tracker.AssertCalled(t, "SetState", mock.Anything, id, status.StateFailed)
}

func TestHandleDropMarksDocumentFailed(t *testing.T) {
	f := newFixture()
	id := uuid.New()

	f.tracker.On("SetState", mock.Anything, id, status.StateFailed).Return(nil)

	tk := extractTask(t, id, "report.pdf", []byte("raw"))
	tk.Attempts = tk.MaxAttempts
	f.coord.HandleDrop(context.Background(), tk, task.ErrQueueFull)

	// An abandoned task must not leave the document pending forever.
	f.tracker.AssertCalled(t, "SetState", mock.Anything, id, status.StateFailed)
}

func TestHandleExtractBadPayloadIsDropped(t *testing.T) {
	f := newFixture()

	err := f.coord.HandleExtract(context.Background(), task.Task{
		Type:    task.TypeExtract,
		Payload: []byte("not json"),
	})

	assert.NoError(t, err)
	f.extractor.AssertNotCalled(t, "Text", mock.Anything, mock.Anything)
}

func TestFilename(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	f.index.On("Get", mock.Anything, id).Return(index.Document{ID: id, Filename: "report.pdf"}, nil)

	name, err := f.coord.Filename(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, "report.pdf", name)
}

func TestDownloadResolvesKeyFromFilename(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	f.index.On("Get", mock.Anything, id).Return(index.Document{ID: id, Filename: "report.v2.pdf"}, nil)
	f.blobs.On("Get", mock.Anything, "report.v2-"+id.String()+".pdf").Return([]byte("%PDF"), nil)

	data, name, err := f.coord.Download(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), data)
	assert.Equal(t, "report.v2.pdf", name)
}

func TestDownloadUnknownDocument(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	f.index.On("Get", mock.Anything, id).Return(index.Document{}, apperr.NotFound(id))

	_, _, err := f.coord.Download(context.Background(), id)

	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	f.blobs.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestDeleteRemovesBlobThenRecord(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	key := "report-" + id.String() + ".pdf"

	f.index.On("Get", mock.Anything, id).Return(index.Document{ID: id, Filename: "report.pdf"}, nil)
	f.blobs.On("Delete", mock.Anything, key).Return(nil)
	f.index.On("Delete", mock.Anything, id).Return(nil)
	f.index.On("Refresh", mock.Anything).Return(nil)
	f.tracker.On("SetState", mock.Anything, id, status.StateDeleted).Return(nil)
	f.cache.On("InvalidateDocument", mock.Anything, id.String()).Return(nil)

	require.NoError(t, f.coord.Delete(context.Background(), id))
	f.blobs.AssertExpectations(t)
	f.index.AssertExpectations(t)
	f.tracker.AssertExpectations(t)
}

func TestDeleteUnknownDocument(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	f.index.On("Get", mock.Anything, id).Return(index.Document{}, apperr.NotFound(id))

	err := f.coord.Delete(context.Background(), id)

	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	f.blobs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	f.index.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDeleteBlobFailureKeepsRecord(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	blobErr := apperr.New(apperr.KindBlobStore, "remove failed")

	f.index.On("Get", mock.Anything, id).Return(index.Document{ID: id, Filename: "report.pdf"}, nil)
	f.blobs.On("Delete", mock.Anything, mock.Anything).Return(blobErr)

	err := f.coord.Delete(context.Background(), id)

	assert.ErrorIs(t, err, blobErr)
	f.index.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestConcurrentIngestKeepsContentSeparate(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	idx := index.NewBleve(log, "")
	require.NoError(t, idx.EnsureReady(context.Background()))
	defer idx.Close()

	blobs := new(blob.MockStore)
	blobs.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	extractor := new(extract.MockExtractor)
	extractor.On("Text", mock.Anything, []byte("file-a")).Return("alpha appears only here", nil)
	extractor.On("Text", mock.Anything, []byte("file-b")).Return("beta appears only here", nil)

	queue := task.NewInProc(log, 8)
	tracker := status.NewMemory()
	coord := NewCoordinator(log, idx, blobs, extractor, queue, tracker, cache.NewNoOpCache())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for i := 0; i < 2; i++ {
		go func() { _ = queue.Worker(ctx, task.TypeExtract, coord.HandleExtract) }()
	}

	uploads := []struct {
		filename string
		data     []byte
	}{
		{"a.pdf", []byte("file-a")},
		{"b.pdf", []byte("file-b")},
	}
	ids := make([]uuid.UUID, len(uploads))
	errs := make([]error, len(uploads))

	var wg sync.WaitGroup
	for i, up := range uploads {
		wg.Add(1)
		go func(i int, filename string, data []byte) {
			defer wg.Done()
			ids[i], errs[i] = coord.Ingest(ctx, data, filename, "application/pdf")
		}(i, up.filename, up.data)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "upload %d", i)
	}

	waitIndexed := func(id uuid.UUID) index.Document {
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if doc, err := idx.Get(context.Background(), id); err == nil {
				return doc
			}
			time.Sleep(10 * time.Millisecond)
		}
		t.Fatalf("document %s never became visible", id)
		return index.Document{}
	}

	docA := waitIndexed(ids[0])
	docB := waitIndexed(ids[1])
	assert.Equal(t, "alpha appears only here", docA.Content)
	assert.Equal(t, "beta appears only here", docB.Content)

	// A keyword unique to one document never matches under the other id.
	m, err := idx.Match(context.Background(), ids[1], "alpha")
	require.NoError(t, err)
	assert.False(t, m.Found)
	m, err = idx.Match(context.Background(), ids[0], "alpha")
	require.NoError(t, err)
	assert.True(t, m.Found)
}

func TestStatusPassthrough(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	f.tracker.On("Get", mock.Anything, id).Return(status.Record{ID: id, State: status.StatePending}, nil)

	rec, err := f.coord.Status(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, status.StatePending, rec.State)
}

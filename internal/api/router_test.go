package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nikhilbhutani/docqa/internal/api/handlers"
	"github.com/nikhilbhutani/docqa/internal/document"
	"github.com/nikhilbhutani/docqa/internal/metadata"
	"github.com/nikhilbhutani/docqa/internal/mock"
	"github.com/nikhilbhutani/docqa/internal/models"
	"github.com/nikhilbhutani/docqa/internal/progress"
	"github.com/nikhilbhutani/docqa/internal/rag"
	"github.com/nikhilbhutani/docqa/internal/storage"
	"github.com/nikhilbhutani/docqa/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	docIDs []string
	err    error
}

func (q *fakeQueue) EnqueueReprocess(_ context.Context, docID string) (string, error) {
	q.docIDs = append(q.docIDs, docID)
	return "task-1", q.err
}

type server struct {
	*httptest.Server
	blobs    *storage.MemoryStore
	meta     *metadata.MemoryStore
	index    *vectorstore.MemoryStore
	embedder *mock.Embedder
	tracker  *progress.Tracker
}

func newServer(t *testing.T, q handlers.Enqueuer, checks map[string]handlers.Check) *server {
	t.Helper()
	s := &server{
		blobs:    storage.NewMemoryStore(),
		meta:     metadata.NewMemoryStore(),
		index:    vectorstore.NewMemoryStore(),
		embedder: mock.NewEmbedder(),
	}
	s.tracker = progress.NewTracker()
	docs := document.NewService(s.blobs, s.meta, s.index, s.embedder, mock.NewExtractor(), document.WithProgress(s.tracker))

	h := NewRouter(Deps{
		Documents:      docs,
		Remover:        document.NewRemover(s.blobs, s.meta, s.index, document.DefaultPrefix),
		Pipeline:       rag.NewPipeline(s.index, s.embedder, mock.NewCompleter(), rag.DefaultTopK),
		Progress:       s.tracker,
		Queue:          q,
		Checks:         checks,
		AllowedOrigins: []string{"*"},
		MaxUploadBytes: 1 << 20,
	}).Setup()
	s.Server = httptest.NewServer(h)
	t.Cleanup(s.Close)
	return s
}

func (s *server) upload(t *testing.T, name, content string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(s.URL+"/api/documents/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func (s *server) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var rd bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&rd).Encode(body))
	}
	req, err := http.NewRequest(method, s.URL+path, &rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestUploadQueryRemove(t *testing.T) {
	s := newServer(t, nil, nil)

	resp := s.upload(t, "france.pdf", "The capital of France is Paris.")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var up struct {
		Success  bool   `json:"success"`
		FileName string `json:"fileName"`
	}
	decode(t, resp, &up)
	assert.True(t, up.Success)
	assert.Contains(t, up.FileName, "-france.pdf")

	resp = s.do(t, http.MethodPost, "/api/documents/query", map[string]string{"query": "What is the capital of France?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var qr rag.QueryResponse
	decode(t, resp, &qr)
	assert.Contains(t, qr.Answer, "Paris")
	assert.Equal(t, "france.pdf", qr.Source)

	resp = s.do(t, http.MethodGet, "/api/documents/lists", nil)
	var docs []models.DocumentRecord
	decode(t, resp, &docs)
	require.Len(t, docs, 1)

	resp = s.do(t, http.MethodGet, "/api/documents/vectors?start=0&end=9", nil)
	var page document.VectorPage
	decode(t, resp, &page)
	assert.Equal(t, 1, page.TotalSize)
	require.Len(t, page.Data, 1)
	assert.Equal(t, docs[0].ID, page.Data[0].Metadata.DocID)

	resp = s.do(t, http.MethodGet, "/api/documents/progress/"+up.FileName, nil)
	var p models.UploadProgress
	decode(t, resp, &p)
	assert.Equal(t, 100, p.Progress)
	assert.Equal(t, models.ProgressCompleted, p.Status)

	for i := 0; i < 2; i++ {
		resp = s.do(t, http.MethodDelete, "/api/documents/remove/doc/file/vectors/"+up.FileName, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
	assert.Zero(t, s.index.Len())
	assert.False(t, s.blobs.Exists("uploads/"+up.FileName))

	resp = s.do(t, http.MethodGet, "/api/documents/files", nil)
	var files []models.FileObject
	decode(t, resp, &files)
	assert.Empty(t, files)
}

func TestUpload_Validation(t *testing.T) {
	s := newServer(t, nil, nil)

	resp := s.upload(t, "bad name.pdf", "text")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Post(s.URL+"/api/documents/upload", "application/json", bytes.NewBufferString("{}"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(t, http.MethodPost, "/api/documents/query", map[string]string{"query": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestUpload_FailureCarriesKindAndStage(t *testing.T) {
	s := newServer(t, nil, nil)
	s.embedder.EmbedFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("embedding quota exceeded")
	}

	resp := s.upload(t, "atlas.pdf", "some text")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "Upload failed", body["error"])
	assert.Equal(t, "embedding", body["kind"])
	assert.Equal(t, "embed", body["stage"])
	assert.Contains(t, body["message"], "embedding quota exceeded")
}

func TestSingleRemoveRoutes(t *testing.T) {
	s := newServer(t, nil, nil)
	resp := s.upload(t, "atlas.pdf", "Berlin is the capital of Germany.")
	var up struct {
		FileName string `json:"fileName"`
	}
	decode(t, resp, &up)
	recs, err := s.meta.Query(context.Background(), metadata.Query{})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	resp = s.do(t, http.MethodDelete, "/api/documents/remove-vectors/"+recs[0].ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Zero(t, s.index.Len())

	resp = s.do(t, http.MethodDelete, "/api/documents/remove-file/"+up.FileName, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.False(t, s.blobs.Exists("uploads/"+up.FileName))

	resp = s.do(t, http.MethodDelete, "/api/documents/remove/atlas.pdf", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	recs, err = s.meta.Query(context.Background(), metadata.Query{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestReprocess(t *testing.T) {
	q := &fakeQueue{}
	s := newServer(t, q, nil)

	resp := s.do(t, http.MethodPost, "/api/documents/reprocess/doc-42", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var body map[string]interface{}
	decode(t, resp, &body)
	assert.Equal(t, "task-1", body["taskId"])
	assert.Equal(t, []string{"doc-42"}, q.docIDs)

	inline := newServer(t, nil, nil)
	resp = inline.do(t, http.MethodPost, "/api/documents/reprocess/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestProgressUnknown(t *testing.T) {
	s := newServer(t, nil, nil)
	resp := s.do(t, http.MethodGet, "/api/documents/progress/nothing.pdf", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestHealth(t *testing.T) {
	s := newServer(t, nil, map[string]handlers.Check{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	resp := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "ok", body.Checks["database"])
	assert.Contains(t, body.Checks["redis"], "connection refused")
}

func TestCORSPreflight(t *testing.T) {
	s := newServer(t, nil, nil)
	req, err := http.NewRequest(http.MethodOptions, s.URL+"/api/documents/query", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func readEvents(t *testing.T, resp *http.Response) []models.UploadProgress {
	t.Helper()
	defer resp.Body.Close()
	var events []models.UploadProgress
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		var p models.UploadProgress
		require.NoError(t, json.Unmarshal([]byte(line), &p))
		events = append(events, p)
	}
	return events
}

func TestProgressEvents_StreamsUntilCompleted(t *testing.T) {
	s := newServer(t, nil, nil)

	resp, err := http.Get(s.URL + "/api/documents/progress/live.pdf/events")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	ctx := context.Background()
	s.tracker.OnProgress(ctx, "other.pdf", progress.Stored, models.ProgressProcessing)
	s.tracker.OnProgress(ctx, "live.pdf", progress.Stored, models.ProgressProcessing)
	s.tracker.OnProgress(ctx, "live.pdf", progress.Indexed, models.ProgressCompleted)

	events := readEvents(t, resp)
	require.Len(t, events, 2)
	assert.Equal(t, progress.Stored, events[0].Progress)
	assert.Equal(t, models.ProgressCompleted, events[1].Status)
}

func TestProgressEvents_FinishedUpload(t *testing.T) {
	s := newServer(t, nil, nil)
	var up struct {
		FileName string `json:"fileName"`
	}
	decode(t, s.upload(t, "atlas.pdf", "Page one text.\fPage two text."), &up)

	resp, err := http.Get(s.URL + "/api/documents/progress/" + up.FileName + "/events")
	require.NoError(t, err)
	events := readEvents(t, resp)
	require.Len(t, events, 1)
	assert.Equal(t, progress.Indexed, events[0].Progress)
	assert.Equal(t, up.FileName, events[0].FileName)
}

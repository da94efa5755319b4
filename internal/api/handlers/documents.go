package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nikhilbhutani/docqa/internal/document"
	"github.com/nikhilbhutani/docqa/internal/progress"
)

const defaultVectorPage = 100

// Enqueuer schedules background reprocessing.
type Enqueuer interface {
	EnqueueReprocess(ctx context.Context, docID string) (string, error)
}

type DocumentHandler struct {
	svc      *document.Service
	remover  *document.Remover
	progress progress.Feed
	queue    Enqueuer
	maxBytes int64
}

// NewDocumentHandler wires the document routes. A nil queue makes reprocess
// requests run inline.
func NewDocumentHandler(svc *document.Service, remover *document.Remover, pr progress.Feed, q Enqueuer, maxBytes int64) *DocumentHandler {
	return &DocumentHandler{svc: svc, remover: remover, progress: pr, queue: q, maxBytes: maxBytes}
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "File too large"})
			return
		}
		badRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "No file provided")
		return
	}
	defer file.Close()

	if !document.ValidName(header.Filename) {
		badRequest(w, `Invalid file name. Only "-" separated names are accepted.`)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(w, "could not read file")
		return
	}

	fileName, err := h.svc.Upload(r.Context(), data, header.Filename)
	if err != nil {
		writeError(w, "Upload failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "fileName": fileName})
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.ListDocuments(r.Context())
	if err != nil {
		writeError(w, "Failed to list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *DocumentHandler) Vectors(w http.ResponseWriter, r *http.Request) {
	start, err := intParam(r, "start", 0)
	if err != nil {
		badRequest(w, "invalid start")
		return
	}
	end, err := intParam(r, "end", start+defaultVectorPage-1)
	if err != nil {
		badRequest(w, "invalid end")
		return
	}

	page, err := h.svc.ListVectors(r.Context(), start, end)
	if err != nil {
		writeError(w, "Failed to list vectors", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *DocumentHandler) Files(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.ListFiles(r.Context())
	if err != nil {
		writeError(w, "Failed to list files", err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (h *DocumentHandler) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "fileName", h.remover.RemoveDocument)
}

func (h *DocumentHandler) RemoveFile(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "fileName", h.remover.RemoveFile)
}

func (h *DocumentHandler) RemoveVectors(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "docId", h.remover.RemoveVector)
}

func (h *DocumentHandler) RemoveAll(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, "fileName", h.remover.RemoveDocFileVectors)
}

func (h *DocumentHandler) remove(w http.ResponseWriter, r *http.Request, param string, fn func(context.Context, string) error) {
	value := chi.URLParam(r, param)
	if value == "" {
		badRequest(w, "No file name provided")
		return
	}
	if err := fn(r.Context(), value); err != nil {
		writeError(w, "Remove failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *DocumentHandler) Progress(w http.ResponseWriter, r *http.Request) {
	fileName := chi.URLParam(r, "fileName")
	p, err := h.progress.Get(r.Context(), fileName)
	if errors.Is(err, progress.ErrUnknown) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "No progress recorded for " + fileName})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to read progress", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ProgressEvents streams the checkpoints of one upload as server-sent events
// until it completes or fails.
func (h *DocumentHandler) ProgressEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	updates := progress.Watch(r.Context(), h.progress, chi.URLParam(r, "fileName"))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for p := range updates {
		data, _ := json.Marshal(p)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}

func (h *DocumentHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docId")

	if h.queue == nil {
		n, err := h.svc.Reprocess(r.Context(), docID)
		if err != nil {
			writeError(w, "Reprocess failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "chunks": n})
		return
	}

	taskID, err := h.queue.EnqueueReprocess(r.Context(), docID)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Reprocess could not be queued", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"success": true, "taskId": taskID})
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nikhilbhutani/docqa/internal/rag"
)

type QueryHandler struct {
	pipeline *rag.Pipeline
}

func NewQueryHandler(p *rag.Pipeline) *QueryHandler {
	return &QueryHandler{pipeline: p}
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req rag.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		badRequest(w, "No query provided")
		return
	}

	resp, err := h.pipeline.Query(r.Context(), req)
	if err != nil {
		writeError(w, "Query failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

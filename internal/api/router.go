package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/docqa/internal/api/handlers"
	"github.com/nikhilbhutani/docqa/internal/api/middleware"
	"github.com/nikhilbhutani/docqa/internal/document"
	"github.com/nikhilbhutani/docqa/internal/progress"
	"github.com/nikhilbhutani/docqa/internal/rag"
)

// Deps are the services the HTTP surface drives. Queue may be nil.
type Deps struct {
	Documents      *document.Service
	Remover        *document.Remover
	Pipeline       *rag.Pipeline
	Progress       progress.Feed
	Queue          handlers.Enqueuer
	Checks         map[string]handlers.Check
	AllowedOrigins []string
	MaxUploadBytes int64
}

type Router struct {
	mux  *chi.Mux
	deps Deps
}

func NewRouter(deps Deps) *Router {
	return &Router{mux: chi.NewRouter(), deps: deps}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.deps.AllowedOrigins))

	health := handlers.NewHealthHandler(rt.deps.Checks)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	docH := handlers.NewDocumentHandler(rt.deps.Documents, rt.deps.Remover, rt.deps.Progress, rt.deps.Queue, rt.deps.MaxUploadBytes)
	queryH := handlers.NewQueryHandler(rt.deps.Pipeline)

	r.Route("/api/documents", func(r chi.Router) {
		r.Post("/upload", docH.Upload)
		r.Get("/lists", docH.List)
		r.Get("/vectors", docH.Vectors)
		r.Get("/files", docH.Files)
		r.Post("/query", queryH.Query)
		r.Get("/progress/{fileName}", docH.Progress)
		r.Get("/progress/{fileName}/events", docH.ProgressEvents)
		r.Post("/reprocess/{docId}", docH.Reprocess)

		r.Delete("/remove/{fileName}", docH.RemoveDocument)
		r.Delete("/remove-file/{fileName}", docH.RemoveFile)
		r.Delete("/remove-vectors/{docId}", docH.RemoveVectors)
		r.Delete("/remove/doc/file/vectors/{fileName}", docH.RemoveAll)
	})

	return r
}

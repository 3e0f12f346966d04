package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"research-rag/internal/handlers"
	"research-rag/internal/retrieval"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Searcher retrieval.Searcher
	Health   handlers.CorpusStatus
	DocsHTML []byte // Rendered documentation page served at /
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(CORS)

	searchHandler := handlers.NewSearchHandler(deps.Searcher)
	statsHandler := handlers.NewStatsHandler(deps.Searcher)
	healthHandler := handlers.NewHealthHandler(deps.Health)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Route("/v1", func(r chi.Router) {
			r.Method(http.MethodPost, "/search", searchHandler)
			r.Method(http.MethodGet, "/stats", statsHandler)
		})
	})

	r.Method(http.MethodGet, "/", handlers.NewDocsHandler(deps.DocsHTML))

	return r
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/perchlabs/perch/internal/api/middleware"
	"github.com/perchlabs/perch/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	CreateArticleHandler  http.HandlerFunc
	ListArticlesHandler   http.HandlerFunc
	GetArticleHandler     http.HandlerFunc
	ArchiveArticleHandler http.HandlerFunc
	DeleteArticleHandler  http.HandlerFunc

	EnrichArticleHandler   http.HandlerFunc
	EnrichArticlesHandler  http.HandlerFunc
	CleanTranscriptHandler http.HandlerFunc

	ListHighlightsHandler http.HandlerFunc
	ListEpisodesHandler   http.HandlerFunc
	GetEpisodeHandler     http.HandlerFunc

	ImportKindleHandler  http.HandlerFunc
	ImportPodcastHandler http.HandlerFunc

	ListJobsHandler   http.HandlerFunc
	ActiveJobsHandler http.HandlerFunc
	GetJobHandler     http.HandlerFunc

	ListModelsHandler    http.HandlerFunc
	RefreshModelsHandler http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/articles", orNotImplemented(deps.CreateArticleHandler))
		r.Get("/api/v1/articles", orNotImplemented(deps.ListArticlesHandler))
		r.Post("/api/v1/articles/enrich", orNotImplemented(deps.EnrichArticlesHandler))
		r.Get("/api/v1/articles/{articleID}", orNotImplemented(deps.GetArticleHandler))
		r.Post("/api/v1/articles/{articleID}/archive", orNotImplemented(deps.ArchiveArticleHandler))
		r.Delete("/api/v1/articles/{articleID}", orNotImplemented(deps.DeleteArticleHandler))
		r.Post("/api/v1/articles/{articleID}/enrich", orNotImplemented(deps.EnrichArticleHandler))

		r.Get("/api/v1/highlights", orNotImplemented(deps.ListHighlightsHandler))

		r.Get("/api/v1/episodes", orNotImplemented(deps.ListEpisodesHandler))
		r.Get("/api/v1/episodes/{episodeID}", orNotImplemented(deps.GetEpisodeHandler))
		r.Post("/api/v1/episodes/{episodeID}/clean", orNotImplemented(deps.CleanTranscriptHandler))

		r.Post("/api/v1/import/kindle", orNotImplemented(deps.ImportKindleHandler))
		r.Post("/api/v1/import/podcast", orNotImplemented(deps.ImportPodcastHandler))

		r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobsHandler))
		r.Get("/api/v1/jobs/active", orNotImplemented(deps.ActiveJobsHandler))
		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJobHandler))

		r.Get("/api/v1/models", orNotImplemented(deps.ListModelsHandler))
		r.Post("/api/v1/models/refresh", orNotImplemented(deps.RefreshModelsHandler))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}

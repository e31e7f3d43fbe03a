package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/perchlabs/perch/internal/ai/tier"
	"github.com/perchlabs/perch/internal/api/response"
	"github.com/perchlabs/perch/internal/store"
	"github.com/perchlabs/perch/pkg/models"
)

// Enricher dispatches background AI work and returns the tracking job.
type Enricher interface {
	EnrichArticle(ctx context.Context, id uuid.UUID, provider string, t tier.Tier) (models.Job, error)
	EnrichArticles(ctx context.Context, ids []uuid.UUID, provider string, t tier.Tier) (models.Job, error)
	CleanTranscript(ctx context.Context, id uuid.UUID, provider string, t tier.Tier) (models.Job, error)
}

// EnrichDefaults fills in provider and tier when a request omits them.
type EnrichDefaults struct {
	Provider string
	Tier     string
}

type enrichRequest struct {
	Provider string `json:"provider"`
	Tier     string `json:"tier"`
}

// resolve applies defaults and normalizes the tier. An unknown tier string
// falls back to balanced rather than erroring, matching tier.Parse.
func (d EnrichDefaults) resolve(req enrichRequest) (string, tier.Tier) {
	provider := req.Provider
	if provider == "" {
		provider = d.Provider
	}
	t := req.Tier
	if t == "" {
		t = d.Tier
	}
	return provider, tier.Parse(t)
}

// NewEnrichArticleHandler returns the handler for
// POST /api/v1/articles/{articleID}/enrich. Responds 202 with the job.
func NewEnrichArticleHandler(enricher Enricher, defaults EnrichDefaults) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "articleID")
		if !ok {
			return
		}

		var req enrichRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
				return
			}
		}
		provider, t := defaults.resolve(req)

		job, err := enricher.EnrichArticle(r.Context(), id, provider, t)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Article not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start enrichment", nil)
			return
		}

		response.Accepted(w, job)
	}
}

// NewEnrichArticlesHandler returns the handler for POST /api/v1/articles/enrich,
// the batch form. One job covers the whole batch.
func NewEnrichArticlesHandler(enricher Enricher, defaults EnrichDefaults) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			enrichRequest
			ArticleIDs []string `json:"article_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if len(req.ArticleIDs) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "article_ids is required", nil)
			return
		}

		ids := make([]uuid.UUID, 0, len(req.ArticleIDs))
		for _, raw := range req.ArticleIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"article_ids must be valid uuids", map[string]string{"invalid": raw})
				return
			}
			ids = append(ids, id)
		}
		provider, t := defaults.resolve(req.enrichRequest)

		job, err := enricher.EnrichArticles(r.Context(), ids, provider, t)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start enrichment", nil)
			return
		}

		response.Accepted(w, job)
	}
}

// NewCleanTranscriptHandler returns the handler for
// POST /api/v1/episodes/{episodeID}/clean.
func NewCleanTranscriptHandler(enricher Enricher, defaults EnrichDefaults) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "episodeID")
		if !ok {
			return
		}

		var req enrichRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
				return
			}
		}
		provider, t := defaults.resolve(req)

		job, err := enricher.CleanTranscript(r.Context(), id, provider, t)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Episode not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start transcript cleanup", nil)
			return
		}

		response.Accepted(w, job)
	}
}

package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/perchlabs/perch/internal/api/response"
	"github.com/perchlabs/perch/internal/store"
	"github.com/perchlabs/perch/pkg/models"
)

// EpisodeStore is the store subset the episode handlers use.
type EpisodeStore interface {
	GetEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error)
	ListEpisodes(ctx context.Context, page, limit int) ([]*models.Episode, int, error)
}

// NewListEpisodesHandler returns the handler for GET /api/v1/episodes.
func NewListEpisodesHandler(st EpisodeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit := parsePagination(r)

		episodes, total, err := st.ListEpisodes(r.Context(), page, limit)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list episodes", nil)
			return
		}
		if episodes == nil {
			episodes = []*models.Episode{}
		}

		response.Collection(w, episodes, response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: page*limit < total,
		})
	}
}

// NewGetEpisodeHandler returns the handler for GET /api/v1/episodes/{episodeID}.
func NewGetEpisodeHandler(st EpisodeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "episodeID")
		if !ok {
			return
		}

		episode, err := st.GetEpisode(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Episode not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load episode", nil)
			return
		}

		response.JSON(w, episode)
	}
}

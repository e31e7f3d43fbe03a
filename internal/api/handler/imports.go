package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/perchlabs/perch/internal/api/response"
	"github.com/perchlabs/perch/internal/importer"
	"github.com/perchlabs/perch/pkg/models"
)

// maxImportBytes bounds the request body for bulk imports. Kindle exports
// accumulated over years stay comfortably under this.
const maxImportBytes = 20 << 20

// Importer dispatches background import batches.
type Importer interface {
	ImportClippings(ctx context.Context, raw string) (models.Job, error)
	ImportEpisodes(ctx context.Context, items []importer.EpisodeItem) (models.Job, error)
}

// NewImportKindleHandler returns the handler for POST /api/v1/import/kindle.
// The body is the raw "My Clippings.txt" file as text.
func NewImportKindleHandler(imp Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read request body", nil)
			return
		}

		job, err := imp.ImportClippings(r.Context(), string(raw))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"No clippings found in upload", map[string]string{"reason": err.Error()})
			return
		}

		response.Accepted(w, job)
	}
}

// NewImportPodcastHandler returns the handler for POST /api/v1/import/podcast.
func NewImportPodcastHandler(imp Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Episodes []importer.EpisodeItem `json:"episodes"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxImportBytes)).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := imp.ImportEpisodes(r.Context(), req.Episodes)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"No episodes to import", map[string]string{"reason": err.Error()})
			return
		}

		response.Accepted(w, job)
	}
}

package handler

import (
	"context"
	"net/http"

	"github.com/perchlabs/perch/internal/api/response"
	"github.com/perchlabs/perch/internal/store"
	"github.com/perchlabs/perch/pkg/models"
)

// HighlightStore is the store subset the highlight handlers use.
type HighlightStore interface {
	ListHighlights(ctx context.Context, filter store.HighlightFilter) ([]*models.Highlight, int, error)
}

// NewListHighlightsHandler returns the handler for GET /api/v1/highlights.
func NewListHighlightsHandler(st HighlightStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.HighlightFilter{BookTitle: r.URL.Query().Get("book")}
		filter.Page, filter.Limit = parsePagination(r)

		highlights, total, err := st.ListHighlights(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list highlights", nil)
			return
		}
		if highlights == nil {
			highlights = []*models.Highlight{}
		}

		response.Collection(w, highlights, response.PaginationMeta{
			Page:    filter.Page,
			Limit:   filter.Limit,
			Total:   total,
			HasNext: filter.Page*filter.Limit < total,
		})
	}
}

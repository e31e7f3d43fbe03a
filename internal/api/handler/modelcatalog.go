package handler

import (
	"errors"
	"net/http"

	"github.com/perchlabs/perch/internal/ai/catalog"
	"github.com/perchlabs/perch/internal/ai/tier"
	"github.com/perchlabs/perch/internal/api/response"
	"github.com/perchlabs/perch/pkg/models"
)

// providerModels is one provider's view in the models listing: what each tier
// currently resolves to, plus the raw catalog snapshot behind it.
type providerModels struct {
	Resolved map[string]string `json:"resolved"`
	Catalog  []string          `json:"catalog,omitempty"`
}

// NewListModelsHandler returns the handler for GET /api/v1/models. It shows,
// per configured provider, the concrete model each tier resolves to right
// now. Before a successful refresh the resolved values are the static
// defaults and the catalog list is empty.
func NewListModelsHandler(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		out := make(map[string]providerModels)
		for _, provider := range cat.Providers() {
			list := cat.Models(provider)
			resolved := make(map[string]string, len(tier.Tiers()))
			for _, t := range tier.Tiers() {
				resolved[string(t)] = tier.Resolve(provider, t, list)
			}
			out[provider] = providerModels{Resolved: resolved, Catalog: list}
		}
		response.JSON(w, out)
	}
}

// NewRefreshModelsHandler returns the handler for POST /api/v1/models/refresh.
// An empty body or missing provider field refreshes every configured
// provider; naming one refreshes just that one.
func NewRefreshModelsHandler(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := r.URL.Query().Get("provider")
		if provider == "" {
			cat.RefreshAll(r.Context())
			response.JSON(w, map[string]any{"refreshed": cat.Providers()})
			return
		}

		if err := cat.Refresh(r.Context(), provider); err != nil {
			if errors.Is(err, models.ErrNoCredential) {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"No credential configured for provider "+provider, nil)
				return
			}
			response.Error(w, http.StatusBadGateway, "UPSTREAM_ERROR",
				"Failed to refresh model catalog", map[string]string{"reason": err.Error()})
			return
		}

		response.JSON(w, map[string]any{"refreshed": []string{provider}})
	}
}

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/perchlabs/perch/internal/ai/tier"
	"github.com/perchlabs/perch/internal/store"
	"github.com/perchlabs/perch/pkg/models"
)

// --- mock enricher ---

type mockEnricher struct {
	job          models.Job
	err          error
	lastProvider string
	lastTier     tier.Tier
	lastIDs      []uuid.UUID
}

func (m *mockEnricher) EnrichArticle(_ context.Context, id uuid.UUID, provider string, t tier.Tier) (models.Job, error) {
	m.lastProvider, m.lastTier, m.lastIDs = provider, t, []uuid.UUID{id}
	return m.job, m.err
}

func (m *mockEnricher) EnrichArticles(_ context.Context, ids []uuid.UUID, provider string, t tier.Tier) (models.Job, error) {
	m.lastProvider, m.lastTier, m.lastIDs = provider, t, ids
	return m.job, m.err
}

func (m *mockEnricher) CleanTranscript(_ context.Context, id uuid.UUID, provider string, t tier.Tier) (models.Job, error) {
	m.lastProvider, m.lastTier, m.lastIDs = provider, t, []uuid.UUID{id}
	return m.job, m.err
}

var testDefaults = EnrichDefaults{Provider: "claude", Tier: "balanced"}

func TestEnrichArticle_Accepted(t *testing.T) {
	me := &mockEnricher{job: models.Job{ID: 7, Status: models.JobStatusPending}}
	h := NewEnrichArticleHandler(me, testDefaults)

	req := withURLParam(jsonReq(t, http.MethodPost, "/x", map[string]string{}),
		"articleID", uuid.NewString())
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	if data["id"].(float64) != 7 {
		t.Errorf("job id = %v", data["id"])
	}
	if me.lastProvider != "claude" || me.lastTier != tier.Balanced {
		t.Errorf("defaults not applied: provider=%s tier=%s", me.lastProvider, me.lastTier)
	}
}

func TestEnrichArticle_ExplicitProviderAndTier(t *testing.T) {
	me := &mockEnricher{}
	h := NewEnrichArticleHandler(me, testDefaults)

	req := withURLParam(jsonReq(t, http.MethodPost, "/x", map[string]string{
		"provider": "openai",
		"tier":     "quality",
	}), "articleID", uuid.NewString())
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if me.lastProvider != "openai" || me.lastTier != tier.Quality {
		t.Errorf("provider=%s tier=%s", me.lastProvider, me.lastTier)
	}
}

func TestEnrichArticle_UnknownTierFallsBackToBalanced(t *testing.T) {
	me := &mockEnricher{}
	h := NewEnrichArticleHandler(me, testDefaults)

	req := withURLParam(jsonReq(t, http.MethodPost, "/x", map[string]string{"tier": "turbo"}),
		"articleID", uuid.NewString())
	rec := httptest.NewRecorder()
	h(rec, req)

	if me.lastTier != tier.Balanced {
		t.Errorf("tier = %s", me.lastTier)
	}
}

func TestEnrichArticle_EmptyBody(t *testing.T) {
	me := &mockEnricher{}
	h := NewEnrichArticleHandler(me, testDefaults)

	req := withURLParam(httptest.NewRequest(http.MethodPost, "/x", nil),
		"articleID", uuid.NewString())
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 with empty body, got %d", rec.Code)
	}
}

func TestEnrichArticle_NotFound(t *testing.T) {
	me := &mockEnricher{err: store.ErrNotFound}
	h := NewEnrichArticleHandler(me, testDefaults)

	req := withURLParam(jsonReq(t, http.MethodPost, "/x", map[string]string{}),
		"articleID", uuid.NewString())
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestEnrichArticles_Batch(t *testing.T) {
	me := &mockEnricher{job: models.Job{ID: 3, TotalItems: 2}}
	h := NewEnrichArticlesHandler(me, testDefaults)

	ids := []string{uuid.NewString(), uuid.NewString()}
	rec := httptest.NewRecorder()
	h(rec, jsonReq(t, http.MethodPost, "/x", map[string]any{"article_ids": ids}))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(me.lastIDs) != 2 {
		t.Errorf("expected 2 ids, got %d", len(me.lastIDs))
	}
}

func TestEnrichArticles_EmptyIDs(t *testing.T) {
	h := NewEnrichArticlesHandler(&mockEnricher{}, testDefaults)

	rec := httptest.NewRecorder()
	h(rec, jsonReq(t, http.MethodPost, "/x", map[string]any{"article_ids": []string{}}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestEnrichArticles_InvalidID(t *testing.T) {
	h := NewEnrichArticlesHandler(&mockEnricher{}, testDefaults)

	rec := httptest.NewRecorder()
	h(rec, jsonReq(t, http.MethodPost, "/x", map[string]any{
		"article_ids": []string{uuid.NewString(), "not-a-uuid"},
	}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCleanTranscript_Accepted(t *testing.T) {
	me := &mockEnricher{job: models.Job{ID: 9}}
	h := NewCleanTranscriptHandler(me, testDefaults)

	req := withURLParam(jsonReq(t, http.MethodPost, "/x", map[string]string{}),
		"episodeID", uuid.NewString())
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
}

func TestCleanTranscript_NotFound(t *testing.T) {
	me := &mockEnricher{err: store.ErrNotFound}
	h := NewCleanTranscriptHandler(me, testDefaults)

	req := withURLParam(jsonReq(t, http.MethodPost, "/x", map[string]string{}),
		"episodeID", uuid.NewString())
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

// Package handler contains the HTTP handlers for the Perch API. Each handler
// is built from the narrow interface it needs, so tests fake exactly that.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/perchlabs/perch/internal/api/response"
	"github.com/perchlabs/perch/internal/scrape"
	"github.com/perchlabs/perch/internal/store"
	"github.com/perchlabs/perch/pkg/models"
)

// ArticleStore is the store subset the article handlers use.
type ArticleStore interface {
	CreateArticle(ctx context.Context, article *models.Article) error
	GetArticle(ctx context.Context, id uuid.UUID) (*models.Article, error)
	ListArticles(ctx context.Context, filter store.ArticleFilter) ([]*models.Article, int, error)
	SetArticleArchived(ctx context.Context, id uuid.UUID, archived bool) error
	DeleteArticle(ctx context.Context, id uuid.UUID) error
}

// Scraper fetches a URL and reduces it to a readable article.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*scrape.Result, error)
}

// NewCreateArticleHandler returns the handler for POST /api/v1/articles.
// The browser extension sends title and content along with the url; a bare
// url triggers server-side scraping.
func NewCreateArticleHandler(st ArticleStore, scraper Scraper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL     string `json:"url"`
			Title   string `json:"title"`
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if strings.TrimSpace(req.URL) == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "url is required", nil)
			return
		}

		now := time.Now().UTC()
		article := &models.Article{
			ID:        uuid.New(),
			URL:       req.URL,
			Title:     strings.TrimSpace(req.Title),
			Content:   req.Content,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if article.Content == "" {
			result, err := scraper.Scrape(r.Context(), req.URL)
			if err != nil {
				response.Error(w, http.StatusUnprocessableEntity, "SCRAPE_FAILED",
					"Could not fetch a readable article from the url", map[string]string{"reason": err.Error()})
				return
			}
			article.Content = result.Markdown
			article.Site = result.Site
			article.Byline = result.Byline
			if article.Title == "" {
				article.Title = result.Title
			}
		}
		if article.Title == "" {
			article.Title = article.URL
		}

		if err := st.CreateArticle(r.Context(), article); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Error(w, http.StatusConflict, "DUPLICATE_URL", "This url is already saved", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save article", nil)
			return
		}

		response.Created(w, article)
	}
}

// NewListArticlesHandler returns the handler for GET /api/v1/articles.
func NewListArticlesHandler(st ArticleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.ArticleFilter{Tag: r.URL.Query().Get("tag")}
		filter.Page, filter.Limit = parsePagination(r)

		if v := r.URL.Query().Get("archived"); v != "" {
			archived, err := strconv.ParseBool(v)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "archived must be true or false", nil)
				return
			}
			filter.Archived = &archived
		}

		articles, total, err := st.ListArticles(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list articles", nil)
			return
		}
		if articles == nil {
			articles = []*models.Article{}
		}

		response.Collection(w, articles, response.PaginationMeta{
			Page:    filter.Page,
			Limit:   filter.Limit,
			Total:   total,
			HasNext: filter.Page*filter.Limit < total,
		})
	}
}

// NewGetArticleHandler returns the handler for GET /api/v1/articles/{articleID}.
func NewGetArticleHandler(st ArticleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "articleID")
		if !ok {
			return
		}

		article, err := st.GetArticle(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Article not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load article", nil)
			return
		}

		response.JSON(w, article)
	}
}

// NewArchiveArticleHandler returns the handler for
// POST /api/v1/articles/{articleID}/archive.
func NewArchiveArticleHandler(st ArticleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "articleID")
		if !ok {
			return
		}

		var req struct {
			Archived *bool `json:"archived"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		archived := true
		if req.Archived != nil {
			archived = *req.Archived
		}

		if err := st.SetArticleArchived(r.Context(), id, archived); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Article not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update article", nil)
			return
		}

		response.JSON(w, map[string]any{"id": id, "archived": archived})
	}
}

// NewDeleteArticleHandler returns the handler for DELETE /api/v1/articles/{articleID}.
func NewDeleteArticleHandler(st ArticleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "articleID")
		if !ok {
			return
		}

		if err := st.DeleteArticle(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Article not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete article", nil)
			return
		}

		response.NoContent(w)
	}
}

// pathUUID parses a uuid URL parameter, writing a 400 on failure.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", name+" must be a valid uuid", nil)
		return uuid.Nil, false
	}
	return id, true
}

func parsePagination(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

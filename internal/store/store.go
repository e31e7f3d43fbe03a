package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/perchlabs/perch/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateArticle(ctx context.Context, article *models.Article) error
	GetArticle(ctx context.Context, id uuid.UUID) (*models.Article, error)
	GetArticleByURL(ctx context.Context, url string) (*models.Article, error)
	ListArticles(ctx context.Context, filter ArticleFilter) ([]*models.Article, int, error)
	SetArticleEnrichment(ctx context.Context, id uuid.UUID, summary string, tags []string) error
	SetArticleArchived(ctx context.Context, id uuid.UUID, archived bool) error
	DeleteArticle(ctx context.Context, id uuid.UUID) error

	CreateHighlight(ctx context.Context, highlight *models.Highlight) error
	ListHighlights(ctx context.Context, filter HighlightFilter) ([]*models.Highlight, int, error)

	CreateEpisode(ctx context.Context, episode *models.Episode) error
	GetEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error)
	ListEpisodes(ctx context.Context, page, limit int) ([]*models.Episode, int, error)
	SetEpisodeTranscript(ctx context.Context, id uuid.UUID, transcript string) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}

type ArticleFilter struct {
	// Archived filters by archive state when non-nil.
	Archived *bool
	// Tag filters to articles carrying the given tag.
	Tag   string
	Page  int
	Limit int
}

type HighlightFilter struct {
	BookTitle string
	Page      int
	Limit     int
}

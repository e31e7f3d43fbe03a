package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/perchlabs/perch/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Articles ---

const articleColumns = `id, url, title, site, byline, content, summary, tags, archived, enriched_at, created_at, updated_at`

func (s *PostgresStore) CreateArticle(ctx context.Context, article *models.Article) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO articles (id, url, title, site, byline, content, archived, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		article.ID, article.URL, article.Title, article.Site, article.Byline,
		article.Content, article.Archived, article.CreatedAt, article.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create article: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetArticle(ctx context.Context, id uuid.UUID) (*models.Article, error) {
	var a models.Article
	err := s.pool.QueryRow(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = $1`, id,
	).Scan(&a.ID, &a.URL, &a.Title, &a.Site, &a.Byline, &a.Content, &a.Summary,
		&a.Tags, &a.Archived, &a.EnrichedAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) GetArticleByURL(ctx context.Context, url string) (*models.Article, error) {
	var a models.Article
	err := s.pool.QueryRow(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE url = $1`, url,
	).Scan(&a.ID, &a.URL, &a.Title, &a.Site, &a.Byline, &a.Content, &a.Summary,
		&a.Tags, &a.Archived, &a.EnrichedAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article by url: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) ListArticles(ctx context.Context, filter ArticleFilter) ([]*models.Article, int, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filter.Archived != nil {
		conditions = append(conditions, fmt.Sprintf("archived = $%d", argIdx))
		args = append(args, *filter.Archived)
		argIdx++
	}
	if filter.Tag != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tags)", argIdx))
		args = append(args, filter.Tag)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM articles WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	limit, offset := normalizePage(filter.Page, filter.Limit)

	dataQuery := fmt.Sprintf(
		`SELECT `+articleColumns+` FROM articles WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var articles []*models.Article
	for rows.Next() {
		var a models.Article
		if err := rows.Scan(&a.ID, &a.URL, &a.Title, &a.Site, &a.Byline, &a.Content,
			&a.Summary, &a.Tags, &a.Archived, &a.EnrichedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, &a)
	}
	return articles, total, rows.Err()
}

func (s *PostgresStore) SetArticleEnrichment(ctx context.Context, id uuid.UUID, summary string, tags []string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE articles SET summary = $2, tags = $3, enriched_at = NOW(), updated_at = NOW() WHERE id = $1`,
		id, summary, tags)
	if err != nil {
		return fmt.Errorf("set article enrichment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetArticleArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE articles SET archived = $2, updated_at = NOW() WHERE id = $1`, id, archived)
	if err != nil {
		return fmt.Errorf("set article archived: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteArticle(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Highlights ---

func (s *PostgresStore) CreateHighlight(ctx context.Context, highlight *models.Highlight) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO highlights (id, book_title, author, text, location, clipped_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		highlight.ID, highlight.BookTitle, highlight.Author, highlight.Text,
		highlight.Location, highlight.ClippedAt, highlight.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create highlight: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListHighlights(ctx context.Context, filter HighlightFilter) ([]*models.Highlight, int, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filter.BookTitle != "" {
		conditions = append(conditions, fmt.Sprintf("book_title = $%d", argIdx))
		args = append(args, filter.BookTitle)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM highlights WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count highlights: %w", err)
	}

	limit, offset := normalizePage(filter.Page, filter.Limit)

	dataQuery := fmt.Sprintf(
		`SELECT id, book_title, author, text, location, clipped_at, created_at
		 FROM highlights WHERE %s ORDER BY clipped_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list highlights: %w", err)
	}
	defer rows.Close()

	var highlights []*models.Highlight
	for rows.Next() {
		var h models.Highlight
		if err := rows.Scan(&h.ID, &h.BookTitle, &h.Author, &h.Text, &h.Location,
			&h.ClippedAt, &h.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan highlight: %w", err)
		}
		highlights = append(highlights, &h)
	}
	return highlights, total, rows.Err()
}

// --- Episodes ---

func (s *PostgresStore) CreateEpisode(ctx context.Context, episode *models.Episode) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO episodes (id, podcast_title, title, audio_url, transcript, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		episode.ID, episode.PodcastTitle, episode.Title, episode.AudioURL,
		episode.Transcript, episode.CreatedAt, episode.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create episode: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error) {
	var e models.Episode
	err := s.pool.QueryRow(ctx,
		`SELECT id, podcast_title, title, audio_url, transcript, cleaned_at, created_at, updated_at
		 FROM episodes WHERE id = $1`, id,
	).Scan(&e.ID, &e.PodcastTitle, &e.Title, &e.AudioURL, &e.Transcript,
		&e.CleanedAt, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) ListEpisodes(ctx context.Context, page, limit int) ([]*models.Episode, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM episodes`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count episodes: %w", err)
	}

	lim, offset := normalizePage(page, limit)

	rows, err := s.pool.Query(ctx,
		`SELECT id, podcast_title, title, audio_url, transcript, cleaned_at, created_at, updated_at
		 FROM episodes ORDER BY created_at DESC LIMIT $1 OFFSET $2`, lim, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var episodes []*models.Episode
	for rows.Next() {
		var e models.Episode
		if err := rows.Scan(&e.ID, &e.PodcastTitle, &e.Title, &e.AudioURL, &e.Transcript,
			&e.CleanedAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan episode: %w", err)
		}
		episodes = append(episodes, &e)
	}
	return episodes, total, rows.Err()
}

func (s *PostgresStore) SetEpisodeTranscript(ctx context.Context, id uuid.UUID, transcript string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE episodes SET transcript = $2, cleaned_at = NOW(), updated_at = NOW() WHERE id = $1`,
		id, transcript)
	if err != nil {
		return fmt.Errorf("set episode transcript: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// normalizePage clamps pagination parameters to sane bounds.
func normalizePage(page, limit int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

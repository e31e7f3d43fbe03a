package models

import (
	"time"

	"github.com/google/uuid"
)

// Article is a saved web page. Content is markdown produced by the scraper
// (or supplied directly by the browser extension). Summary and Tags are
// filled in by AI enrichment and stay nil until a job completes.
type Article struct {
	ID         uuid.UUID  `db:"id"          json:"id"`
	URL        string     `db:"url"         json:"url"`
	Title      string     `db:"title"       json:"title"`
	Site       string     `db:"site"        json:"site,omitempty"`
	Byline     string     `db:"byline"      json:"byline,omitempty"`
	Content    string     `db:"content"     json:"content,omitempty"`
	Summary    *string    `db:"summary"     json:"summary,omitempty"`
	Tags       []string   `db:"tags"        json:"tags,omitempty"`
	Archived   bool       `db:"archived"    json:"archived"`
	EnrichedAt *time.Time `db:"enriched_at" json:"enriched_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at"  json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"  json:"updated_at"`
}

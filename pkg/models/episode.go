package models

import (
	"time"

	"github.com/google/uuid"
)

// Episode is a saved podcast episode. Transcript holds the raw text as
// imported; CleanedAt is set once AI transcript cleanup has rewritten it.
type Episode struct {
	ID           uuid.UUID  `db:"id"            json:"id"`
	PodcastTitle string     `db:"podcast_title" json:"podcast_title"`
	Title        string     `db:"title"         json:"title"`
	AudioURL     string     `db:"audio_url"     json:"audio_url,omitempty"`
	Transcript   string     `db:"transcript"    json:"transcript,omitempty"`
	CleanedAt    *time.Time `db:"cleaned_at"    json:"cleaned_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"    json:"updated_at"`
}

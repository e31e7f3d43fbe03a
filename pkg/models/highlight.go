package models

import (
	"time"

	"github.com/google/uuid"
)

// Highlight is a single passage clipped from a book, usually imported in
// bulk from a Kindle "My Clippings.txt" export.
type Highlight struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	BookTitle string    `db:"book_title" json:"book_title"`
	Author    string    `db:"author"     json:"author,omitempty"`
	Text      string    `db:"text"       json:"text"`
	Location  string    `db:"location"   json:"location,omitempty"`
	ClippedAt time.Time `db:"clipped_at" json:"clipped_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

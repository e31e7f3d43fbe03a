package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/perchlabs/perch/internal/jobs"
	"github.com/perchlabs/perch/internal/store"
	"github.com/perchlabs/perch/pkg/models"
)

// clippingSeparator terminates every entry in a Kindle "My Clippings.txt".
const clippingSeparator = "=========="

// titleAuthorPattern splits "Book Title (Author Name)"; the author part is
// optional and parenthesized last on the line.
var titleAuthorPattern = regexp.MustCompile(`^(.*?)\s*\(([^()]*)\)\s*$`)

var locationPattern = regexp.MustCompile(`(?i)location\s+[\d-]+`)
var pagePattern = regexp.MustCompile(`(?i)page\s+[\d-]+`)

// addedOnLayout matches "Added on Monday, January 1, 2024 10:00:00 AM".
const addedOnLayout = "Monday, January 2, 2006 3:04:05 PM"

// clipping is one parsed highlight entry.
type clipping struct {
	BookTitle string
	Author    string
	Text      string
	Location  string
	ClippedAt time.Time
}

// ImportClippings creates a job covering every entry in a Kindle clippings
// export and writes the highlights in a background goroutine. Entries that are
// malformed, are not highlights (bookmarks, notes), or already exist are
// skipped and still counted. Returns the job immediately.
func (s *Service) ImportClippings(ctx context.Context, raw string) (models.Job, error) {
	blocks := splitClippings(raw)
	if len(blocks) == 0 {
		return models.Job{}, errors.New("no clippings found in input")
	}

	title := fmt.Sprintf("Importing %d Kindle clippings", len(blocks))
	if len(blocks) == 1 {
		title = "Importing 1 Kindle clipping"
	}
	job := s.tracker.Create(ctx, title, len(blocks))
	go s.runClippings(job.ID, blocks)
	return job, nil
}

func (s *Service) runClippings(jobID int64, blocks []string) {
	ctx := context.Background()
	defer s.recoverJob(ctx, jobID, "runClippings")

	s.tracker.Apply(ctx, jobID, jobs.Update{Status: strptr(models.JobStatusProcessing)})

	imported, skipped := 0, 0
	now := time.Now().UTC()
	for i, block := range blocks {
		c, err := parseClipping(block, now)
		if err != nil {
			slog.Debug("skipping clipping", "job_id", jobID, "entry", i+1, "reason", err)
			skipped++
		} else {
			h := &models.Highlight{
				ID:        uuid.New(),
				BookTitle: c.BookTitle,
				Author:    c.Author,
				Text:      c.Text,
				Location:  c.Location,
				ClippedAt: c.ClippedAt,
				CreatedAt: now,
			}
			switch err := s.store.CreateHighlight(ctx, h); {
			case errors.Is(err, store.ErrDuplicateKey):
				skipped++
			case err != nil:
				slog.Warn("storing highlight", "job_id", jobID, "entry", i+1, "error", err)
				skipped++
			default:
				imported++
			}
		}
		done := i + 1
		s.tracker.Apply(ctx, jobID, jobs.Update{CompletedItems: &done})
	}

	slog.Info("kindle import finished", "job_id", jobID, "imported", imported, "skipped", skipped)
	s.tracker.Apply(ctx, jobID, jobs.Update{Status: strptr(models.JobStatusCompleted)})
}

// splitClippings breaks the raw export into entry blocks, dropping empties.
func splitClippings(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	var blocks []string
	for _, block := range strings.Split(raw, clippingSeparator) {
		if strings.TrimSpace(block) != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// parseClipping parses one entry block. fallback is used when the "Added on"
// timestamp is missing or unparseable.
func parseClipping(block string, fallback time.Time) (clipping, error) {
	lines := strings.Split(strings.TrimSpace(block), "\n")
	if len(lines) < 3 {
		return clipping{}, errors.New("too few lines")
	}

	// The first line of each entry may carry a BOM in real exports.
	titleLine := strings.TrimPrefix(strings.TrimSpace(lines[0]), "\ufeff")
	metaLine := strings.TrimSpace(lines[1])
	text := strings.TrimSpace(strings.Join(lines[2:], "\n"))

	if titleLine == "" || text == "" {
		return clipping{}, errors.New("missing title or text")
	}
	if !strings.Contains(strings.ToLower(metaLine), "highlight") {
		return clipping{}, errors.New("not a highlight entry")
	}

	c := clipping{BookTitle: titleLine, Text: text, ClippedAt: fallback}
	if m := titleAuthorPattern.FindStringSubmatch(titleLine); m != nil {
		c.BookTitle = strings.TrimSpace(m[1])
		c.Author = strings.TrimSpace(m[2])
	}
	if loc := locationPattern.FindString(metaLine); loc != "" {
		c.Location = loc
	} else if page := pagePattern.FindString(metaLine); page != "" {
		c.Location = page
	}
	if _, after, found := strings.Cut(metaLine, "Added on "); found {
		if ts, err := time.Parse(addedOnLayout, strings.TrimSpace(after)); err == nil {
			c.ClippedAt = ts.UTC()
		}
	}
	return c, nil
}

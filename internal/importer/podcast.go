package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/perchlabs/perch/internal/jobs"
	"github.com/perchlabs/perch/internal/store"
	"github.com/perchlabs/perch/pkg/models"
)

// EpisodeItem is one already-parsed podcast episode to import.
type EpisodeItem struct {
	PodcastTitle string `json:"podcast_title"`
	Title        string `json:"title"`
	AudioURL     string `json:"audio_url"`
	Transcript   string `json:"transcript"`
}

// ImportEpisodes creates a job covering the batch and writes the episodes in
// a background goroutine. Items missing a title, or already present, are
// skipped and still counted. Returns the job immediately.
func (s *Service) ImportEpisodes(ctx context.Context, items []EpisodeItem) (models.Job, error) {
	if len(items) == 0 {
		return models.Job{}, errors.New("no episodes to import")
	}

	title := fmt.Sprintf("Importing %d podcast episodes", len(items))
	if len(items) == 1 {
		title = "Importing 1 podcast episode"
	}
	job := s.tracker.Create(ctx, title, len(items))
	go s.runEpisodes(job.ID, items)
	return job, nil
}

func (s *Service) runEpisodes(jobID int64, items []EpisodeItem) {
	ctx := context.Background()
	defer s.recoverJob(ctx, jobID, "runEpisodes")

	s.tracker.Apply(ctx, jobID, jobs.Update{Status: strptr(models.JobStatusProcessing)})

	imported, skipped := 0, 0
	now := time.Now().UTC()
	for i, item := range items {
		if strings.TrimSpace(item.Title) == "" || strings.TrimSpace(item.PodcastTitle) == "" {
			slog.Debug("skipping episode", "job_id", jobID, "entry", i+1, "reason", "missing title")
			skipped++
		} else {
			e := &models.Episode{
				ID:           uuid.New(),
				PodcastTitle: item.PodcastTitle,
				Title:        item.Title,
				AudioURL:     item.AudioURL,
				Transcript:   item.Transcript,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			switch err := s.store.CreateEpisode(ctx, e); {
			case errors.Is(err, store.ErrDuplicateKey):
				skipped++
			case err != nil:
				slog.Warn("storing episode", "job_id", jobID, "entry", i+1, "error", err)
				skipped++
			default:
				imported++
			}
		}
		done := i + 1
		s.tracker.Apply(ctx, jobID, jobs.Update{CompletedItems: &done})
	}

	slog.Info("podcast import finished", "job_id", jobID, "imported", imported, "skipped", skipped)
	s.tracker.Apply(ctx, jobID, jobs.Update{Status: strptr(models.JobStatusCompleted)})
}

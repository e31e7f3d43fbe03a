// Package importer brings external content into the store in bulk: Kindle
// clipping exports and pre-parsed podcast episodes. Each import is one job;
// entries are written sequentially and bad entries are skipped, never fatal.
package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/perchlabs/perch/internal/jobs"
	"github.com/perchlabs/perch/pkg/models"
)

// Store is the subset of the relational store the importers write to.
type Store interface {
	CreateHighlight(ctx context.Context, highlight *models.Highlight) error
	CreateEpisode(ctx context.Context, episode *models.Episode) error
}

// Service runs import batches against the job tracker.
type Service struct {
	store   Store
	tracker *jobs.Tracker
}

// NewService creates a new import Service.
func NewService(st Store, tracker *jobs.Tracker) *Service {
	return &Service{store: st, tracker: tracker}
}

func (s *Service) failJob(ctx context.Context, jobID int64, msg string) {
	s.tracker.Apply(ctx, jobID, jobs.Update{
		Status: strptr(models.JobStatusFailed),
		Error:  &msg,
	})
}

func (s *Service) recoverJob(ctx context.Context, jobID int64, op string) {
	if r := recover(); r != nil {
		slog.Error("panic in "+op, "error", r, "job_id", jobID)
		s.failJob(ctx, jobID, fmt.Sprintf("panic: %v", r))
	}
}

func strptr(s string) *string { return &s }

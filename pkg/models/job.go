package models

import "time"

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Job tracks one background unit of work (an enrichment, an import batch).
// Jobs are created by batch processors, mutated only through the tracker,
// and evicted by the tracker's retention window — never deleted by the user.
type Job struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Status         string     `json:"status"`
	TotalItems     int        `json:"total_items"`
	CompletedItems int        `json:"completed_items"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Error          *string    `json:"error,omitempty"`
}

// Terminal reports whether the job has reached a final state.
// Terminal jobs are immutable.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Active reports whether the job still counts toward the UI badge.
func (j *Job) Active() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusProcessing
}

// Package jobs tracks fire-and-forget background operations (AI enrichment,
// batch imports) as durable, recoverable job records.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/perchlabs/perch/internal/kv"
	"github.com/perchlabs/perch/pkg/models"
)

const (
	// DefaultMaxJobs bounds how many jobs the list surface returns.
	DefaultMaxJobs = 20
	// DefaultRetention is how long a job record is kept after it started,
	// independent of status.
	DefaultRetention = 24 * time.Hour
)

// InterruptedError is stamped on jobs found non-terminal at load time.
// A job driven by an in-memory goroutine cannot survive a restart, so
// leaving it "processing" would be a silent lie to the user.
const InterruptedError = "interrupted by application restart"

// Update carries the fields a batch processor may change on a job.
// Nil fields are left untouched.
type Update struct {
	Status         *string
	CompletedItems *int
	Error          *string
}

// persistedState is the single opaque record written to the kv store.
type persistedState struct {
	Jobs   []*models.Job `json:"jobs"`
	NextID int64         `json:"next_id"`
}

// Tracker owns the job list. It is the only writer of job records and of the
// persisted blob; batch processors interact with it exclusively through
// Create and Apply. Safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	store     kv.Store
	jobs      []*models.Job // most recent first
	nextID    int64
	retention time.Duration
	maxJobs   int
	now       func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

func WithRetention(d time.Duration) Option {
	return func(t *Tracker) { t.retention = d }
}

func WithMaxJobs(n int) Option {
	return func(t *Tracker) { t.maxJobs = n }
}

// WithClock replaces the time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker loads persisted state, reconciles interrupted jobs, and returns
// a ready tracker. A missing or corrupt persisted record degrades to empty
// history; NewTracker never fails.
func NewTracker(ctx context.Context, store kv.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:     store,
		retention: DefaultRetention,
		maxJobs:   DefaultMaxJobs,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.load(ctx)
	return t
}

// load reads the persisted blob and force-fails any job that was still
// running when the previous process exited.
func (t *Tracker) load(ctx context.Context) {
	raw, found, err := t.store.Load(ctx, kv.JobStateKey())
	if err != nil {
		slog.Warn("loading job state, starting empty", "error", err)
		return
	}
	if !found {
		return
	}

	var st persistedState
	if err := json.Unmarshal(raw, &st); err != nil {
		slog.Warn("corrupt job state, starting empty", "error", err)
		return
	}

	t.jobs = st.Jobs
	t.nextID = st.NextID

	recovered := 0
	loadedAt := t.now().UTC()
	for _, job := range t.jobs {
		if job.Terminal() {
			continue
		}
		job.Status = models.JobStatusFailed
		msg := InterruptedError
		job.Error = &msg
		completedAt := loadedAt
		job.CompletedAt = &completedAt
		recovered++
	}

	if recovered > 0 {
		slog.Info("marked interrupted jobs as failed", "count", recovered)
		t.persistLocked(ctx)
	}
}

// Create allocates the next id and inserts a new pending job at the front of
// the list. totalItems below 1 is treated as a single-item operation.
func (t *Tracker) Create(ctx context.Context, title string, totalItems int) models.Job {
	if totalItems < 1 {
		totalItems = 1
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	job := &models.Job{
		ID:         t.nextID,
		Title:      title,
		Status:     models.JobStatusPending,
		TotalItems: totalItems,
		StartedAt:  t.now().UTC(),
	}
	t.jobs = append([]*models.Job{job}, t.jobs...)

	t.persistLocked(ctx)
	return *job
}

// Apply merges the given fields into the job with that id. Updating an
// unknown or terminal job is a no-op: callers are expected to hold the id
// returned by Create, and terminal jobs are immutable.
func (t *Tracker) Apply(ctx context.Context, id int64, upd Update) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job := t.findLocked(id)
	if job == nil || job.Terminal() {
		return
	}

	if upd.Status != nil {
		job.Status = *upd.Status
	}
	if upd.CompletedItems != nil && *upd.CompletedItems > job.CompletedItems {
		n := *upd.CompletedItems
		if n > job.TotalItems {
			n = job.TotalItems
		}
		job.CompletedItems = n
	}
	if upd.Error != nil {
		job.Error = upd.Error
	}

	if job.Terminal() {
		completedAt := t.now().UTC()
		job.CompletedAt = &completedAt
	}

	t.persistLocked(ctx)
}

// Get returns a copy of the job with the given id.
func (t *Tracker) Get(id int64) (models.Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if job := t.findLocked(id); job != nil {
		return *job, true
	}
	return models.Job{}, false
}

// Active returns the jobs that drive the UI badge: pending or processing.
func (t *Tracker) Active() []models.Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	active := []models.Job{}
	for _, job := range t.jobs {
		if job.Active() {
			active = append(active, *job)
		}
	}
	return active
}

// Recent returns the most recent jobs for list display, capped at maxJobs.
func (t *Tracker) Recent() []models.Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.jobs)
	if n > t.maxJobs {
		n = t.maxJobs
	}
	recent := make([]models.Job, 0, n)
	for _, job := range t.jobs[:n] {
		recent = append(recent, *job)
	}
	return recent
}

func (t *Tracker) findLocked(id int64) *models.Job {
	for _, job := range t.jobs {
		if job.ID == id {
			return job
		}
	}
	return nil
}

// persistLocked evicts expired jobs, caps the in-memory list, and writes the
// full state back. Persistence failures are logged and swallowed: a write
// that never lands degrades to "no history" at the next load, not a crash.
func (t *Tracker) persistLocked(ctx context.Context) {
	cutoff := t.now().UTC().Add(-t.retention)
	kept := t.jobs[:0]
	for _, job := range t.jobs {
		if job.StartedAt.After(cutoff) {
			kept = append(kept, job)
		}
	}
	t.jobs = kept

	if len(t.jobs) > t.maxJobs {
		t.jobs = t.jobs[:t.maxJobs]
	}

	raw, err := json.Marshal(persistedState{Jobs: t.jobs, NextID: t.nextID})
	if err != nil {
		slog.Warn("marshaling job state", "error", err)
		return
	}
	if err := t.store.Save(ctx, kv.JobStateKey(), raw); err != nil {
		slog.Warn("persisting job state", "error", err)
	}
}

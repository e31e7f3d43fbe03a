// Package enrich runs AI enrichment over saved content: article summaries and
// tags, and podcast transcript cleanup. All work happens in background
// goroutines reporting through the job tracker; callers get a job id back
// immediately and poll for progress.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/perchlabs/perch/internal/ai/catalog"
	"github.com/perchlabs/perch/internal/ai/tier"
	"github.com/perchlabs/perch/internal/jobs"
	"github.com/perchlabs/perch/pkg/models"
)

// maxContentBytes bounds how much article or transcript text is sent to the
// provider in a single completion call.
const maxContentBytes = 48000

const summarizeSystem = `You summarize saved web articles for a read-it-later app.
Respond with a JSON object only: {"summary": "...", "tags": ["...", "..."]}.
The summary is 2-3 sentences. Tags are 1-5 lowercase topic words.`

const cleanupSystem = `You clean up raw podcast transcripts: fix punctuation and
casing, remove filler words and repeated false starts, and break the text into
paragraphs. Preserve the speaker's wording otherwise. Respond with the cleaned
transcript only.`

// Store is the subset of the relational store the enricher touches.
type Store interface {
	GetArticle(ctx context.Context, id uuid.UUID) (*models.Article, error)
	SetArticleEnrichment(ctx context.Context, id uuid.UUID, summary string, tags []string) error
	GetEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error)
	SetEpisodeTranscript(ctx context.Context, id uuid.UUID, transcript string) error
}

// Service orchestrates AI enrichment batches.
type Service struct {
	store     Store
	tracker   *jobs.Tracker
	catalog   *catalog.Catalog
	providers map[string]models.AIProvider
	timeout   time.Duration
}

// NewService creates a new enrichment Service.
func NewService(st Store, tracker *jobs.Tracker, cat *catalog.Catalog, providers map[string]models.AIProvider, timeout time.Duration) *Service {
	return &Service{
		store:     st,
		tracker:   tracker,
		catalog:   cat,
		providers: providers,
		timeout:   timeout,
	}
}

// EnrichArticle creates a single-item job for one article and dispatches the
// work in a background goroutine. Returns the job immediately.
func (s *Service) EnrichArticle(ctx context.Context, id uuid.UUID, provider string, t tier.Tier) (models.Job, error) {
	article, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return models.Job{}, err
	}

	job := s.tracker.Create(ctx, fmt.Sprintf("Enriching %q", article.Title), 1)
	go s.runArticles(job.ID, []uuid.UUID{id}, provider, t)
	return job, nil
}

// EnrichArticles creates one job covering the whole batch and dispatches it in
// a background goroutine. Returns the job immediately.
func (s *Service) EnrichArticles(ctx context.Context, ids []uuid.UUID, provider string, t tier.Tier) (models.Job, error) {
	if len(ids) == 0 {
		return models.Job{}, errors.New("no articles to enrich")
	}

	title := fmt.Sprintf("Enriching %d articles", len(ids))
	if len(ids) == 1 {
		title = "Enriching 1 article"
	}
	job := s.tracker.Create(ctx, title, len(ids))
	go s.runArticles(job.ID, ids, provider, t)
	return job, nil
}

// CleanTranscript creates a single-item job that rewrites one episode's raw
// transcript. Returns the job immediately.
func (s *Service) CleanTranscript(ctx context.Context, id uuid.UUID, provider string, t tier.Tier) (models.Job, error) {
	episode, err := s.store.GetEpisode(ctx, id)
	if err != nil {
		return models.Job{}, err
	}

	job := s.tracker.Create(ctx, fmt.Sprintf("Cleaning transcript for %q", episode.Title), 1)
	go s.runTranscript(job.ID, id, provider, t)
	return job, nil
}

// runArticles is the batch loop: strictly sequential, progress after every
// item whether it succeeded or not. Only a whole-batch condition (missing
// credential, panic) fails the job; per-item errors are logged and counted.
func (s *Service) runArticles(jobID int64, ids []uuid.UUID, provider string, t tier.Tier) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in runArticles", "error", r, "job_id", jobID)
			s.failJob(ctx, jobID, fmt.Sprintf("panic: %v", r))
		}
	}()

	s.tracker.Apply(ctx, jobID, jobs.Update{Status: strptr(models.JobStatusProcessing)})

	p, model, err := s.selectModel(provider, t)
	if err != nil {
		s.failJob(ctx, jobID, err.Error())
		return
	}

	for i, id := range ids {
		if err := s.enrichOne(ctx, p, model, id); err != nil {
			slog.Warn("enriching article", "job_id", jobID, "article_id", id, "error", err)
		}
		done := i + 1
		s.tracker.Apply(ctx, jobID, jobs.Update{CompletedItems: &done})
	}

	s.tracker.Apply(ctx, jobID, jobs.Update{Status: strptr(models.JobStatusCompleted)})
}

func (s *Service) runTranscript(jobID int64, id uuid.UUID, provider string, t tier.Tier) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in runTranscript", "error", r, "job_id", jobID)
			s.failJob(ctx, jobID, fmt.Sprintf("panic: %v", r))
		}
	}()

	s.tracker.Apply(ctx, jobID, jobs.Update{Status: strptr(models.JobStatusProcessing)})

	p, model, err := s.selectModel(provider, t)
	if err != nil {
		s.failJob(ctx, jobID, err.Error())
		return
	}

	if err := s.cleanOne(ctx, p, model, id); err != nil {
		slog.Warn("cleaning transcript", "job_id", jobID, "episode_id", id, "error", err)
	}
	done := 1
	s.tracker.Apply(ctx, jobID, jobs.Update{CompletedItems: &done})

	s.tracker.Apply(ctx, jobID, jobs.Update{Status: strptr(models.JobStatusCompleted)})
}

// selectModel validates the provider credential and resolves the tier to a
// concrete model against the current catalog snapshot.
func (s *Service) selectModel(provider string, t tier.Tier) (models.AIProvider, string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, "", fmt.Errorf("no credential configured for provider %s", provider)
	}
	return p, tier.Resolve(provider, t, s.catalog.Models(provider)), nil
}

// enrichment is the JSON shape the summarization prompt asks for.
type enrichment struct {
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

func (s *Service) enrichOne(ctx context.Context, p models.AIProvider, model string, id uuid.UUID) error {
	article, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return fmt.Errorf("loading article: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := p.Complete(callCtx, models.CompletionRequest{
		Model:     model,
		System:    summarizeSystem,
		Prompt:    fmt.Sprintf("Title: %s\n\n%s", article.Title, truncateString(article.Content, maxContentBytes)),
		MaxTokens: 1024,
	})
	if err != nil {
		return err
	}

	var e enrichment
	if err := json.Unmarshal([]byte(stripFences(result.Text)), &e); err != nil {
		return fmt.Errorf("parsing enrichment response: %w", err)
	}
	if e.Summary == "" {
		return errors.New("empty summary in enrichment response")
	}

	if err := s.store.SetArticleEnrichment(ctx, id, e.Summary, e.Tags); err != nil {
		return fmt.Errorf("storing enrichment: %w", err)
	}
	return nil
}

func (s *Service) cleanOne(ctx context.Context, p models.AIProvider, model string, id uuid.UUID) error {
	episode, err := s.store.GetEpisode(ctx, id)
	if err != nil {
		return fmt.Errorf("loading episode: %w", err)
	}
	if strings.TrimSpace(episode.Transcript) == "" {
		return errors.New("episode has no transcript")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := p.Complete(callCtx, models.CompletionRequest{
		Model:     model,
		System:    cleanupSystem,
		Prompt:    truncateString(episode.Transcript, maxContentBytes),
		MaxTokens: 16384,
	})
	if err != nil {
		return err
	}
	if strings.TrimSpace(result.Text) == "" {
		return errors.New("empty cleanup response")
	}

	if err := s.store.SetEpisodeTranscript(ctx, id, result.Text); err != nil {
		return fmt.Errorf("storing transcript: %w", err)
	}
	return nil
}

func (s *Service) failJob(ctx context.Context, jobID int64, msg string) {
	s.tracker.Apply(ctx, jobID, jobs.Update{
		Status: strptr(models.JobStatusFailed),
		Error:  &msg,
	})
}

func strptr(s string) *string { return &s }

// stripFences removes a markdown code fence wrapper some models insist on
// adding around JSON output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// truncateString truncates s to maxBytes without splitting UTF-8 runes.
func truncateString(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}

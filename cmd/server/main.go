// Package main is the entrypoint for the Perch API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/perchlabs/perch/internal/ai"
	"github.com/perchlabs/perch/internal/ai/catalog"
	"github.com/perchlabs/perch/internal/ai/tier"
	"github.com/perchlabs/perch/internal/api"
	"github.com/perchlabs/perch/internal/api/handler"
	mw "github.com/perchlabs/perch/internal/api/middleware"
	"github.com/perchlabs/perch/internal/api/response"
	"github.com/perchlabs/perch/internal/config"
	"github.com/perchlabs/perch/internal/enrich"
	"github.com/perchlabs/perch/internal/importer"
	"github.com/perchlabs/perch/internal/jobs"
	"github.com/perchlabs/perch/internal/kv"
	"github.com/perchlabs/perch/internal/scrape"
	"github.com/perchlabs/perch/internal/store"
	"github.com/perchlabs/perch/pkg/models"
)

const (
	shutdownTimeout = 30 * time.Second
	scrapeTimeout   = 30 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "default_tier", cfg.AI.DefaultTier, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Connect to Redis (job state, model catalog, rate limiting)
	kvStore, err := kv.NewRedisStore(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis store: %w", err)
	}
	defer kvStore.Close()

	if err := kvStore.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. AI providers and model catalog. Only providers with credentials are
	// built; the first catalog refresh happens off the startup path so a slow
	// vendor API cannot delay serving.
	providers := ai.NewProviders(cfg.AI)
	slog.Info("AI providers initialized", "count", len(providers))

	cat := catalog.New(ctx, kvStore, providers)
	go cat.RefreshAll(context.Background())

	// 6. Job tracker: loads persisted history and fails interrupted jobs
	tracker := jobs.NewTracker(ctx, kvStore,
		jobs.WithRetention(cfg.Jobs.Retention),
		jobs.WithMaxJobs(cfg.Jobs.MaxJobs),
	)

	// 7. Services
	pgStore := store.NewPostgresStore(pool)
	scraper := scrape.NewScraper(scrapeTimeout)
	enricher := enrich.NewService(pgStore, tracker, cat, providers, cfg.AI.InferenceTimeout)
	imports := importer.NewService(pgStore, tracker)

	// 8. Build router with dependencies
	auth := mw.NewAuth(pgStore)
	rateLimit := mw.NewRateLimit(kvStore, 60)
	defaults := handler.EnrichDefaults{
		Provider: defaultProvider(providers),
		Tier:     cfg.AI.DefaultTier,
	}

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler: healthHandler(pgStore, kvStore),

		CreateArticleHandler:  handler.NewCreateArticleHandler(pgStore, scraper),
		ListArticlesHandler:   handler.NewListArticlesHandler(pgStore),
		GetArticleHandler:     handler.NewGetArticleHandler(pgStore),
		ArchiveArticleHandler: handler.NewArchiveArticleHandler(pgStore),
		DeleteArticleHandler:  handler.NewDeleteArticleHandler(pgStore),

		EnrichArticleHandler:   handler.NewEnrichArticleHandler(enricher, defaults),
		EnrichArticlesHandler:  handler.NewEnrichArticlesHandler(enricher, defaults),
		CleanTranscriptHandler: handler.NewCleanTranscriptHandler(enricher, defaults),

		ListHighlightsHandler: handler.NewListHighlightsHandler(pgStore),
		ListEpisodesHandler:   handler.NewListEpisodesHandler(pgStore),
		GetEpisodeHandler:     handler.NewGetEpisodeHandler(pgStore),

		ImportKindleHandler:  handler.NewImportKindleHandler(imports),
		ImportPodcastHandler: handler.NewImportPodcastHandler(imports),

		ListJobsHandler:   handler.NewListJobsHandler(tracker),
		ActiveJobsHandler: handler.NewActiveJobsHandler(tracker),
		GetJobHandler:     handler.NewGetJobHandler(tracker),

		ListModelsHandler:    handler.NewListModelsHandler(cat),
		RefreshModelsHandler: handler.NewRefreshModelsHandler(cat),

		CreateKeyHandler: handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:  handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// defaultProvider picks the provider used when a request does not name one.
// Claude wins when both credentials are configured.
func defaultProvider(providers map[string]models.AIProvider) string {
	if _, ok := providers[tier.ProviderClaude]; ok {
		return tier.ProviderClaude
	}
	if _, ok := providers[tier.ProviderOpenAI]; ok {
		return tier.ProviderOpenAI
	}
	return tier.ProviderClaude
}

// healthHandler checks database and redis connectivity.
func healthHandler(s store.Store, k kv.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"redis":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := k.Ping(r.Context()); err != nil {
			checks["redis"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["redis"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}

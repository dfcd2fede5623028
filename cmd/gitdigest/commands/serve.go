// CLAUDE:SUMMARY `gitdigest serve` — HTTP API, SQLite stores, cron retention, graceful shutdown.
package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/nnamdiodozi/gitdigest/dbopen"
	"github.com/nnamdiodozi/gitdigest/ingest"
	"github.com/nnamdiodozi/gitdigest/llm"
	"github.com/nnamdiodozi/gitdigest/observability"
	"github.com/nnamdiodozi/gitdigest/runstore"
	"github.com/nnamdiodozi/gitdigest/server"
	"github.com/nnamdiodozi/gitdigest/triage"
)

// Retention windows for the maintenance job.
const (
	retentionEventsDays  = 30
	retentionMetricsDays = 7
	retentionHTTPDays    = 14
	retentionRunsDays    = 90
)

// newServeCmd creates the `gitdigest serve` command that runs the HTTP API.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Start the gitdigest HTTP API. Digest runs are recorded in SQLite
and old summary files are pruned by a periodic maintenance job.

Examples:
  gitdigest serve
  gitdigest serve --config config.yaml`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, os.Stdout)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores.
	runsDB, err := dbopen.Open(cfg.Storage.RunsDB,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(runstore.Schema))
	if err != nil {
		return fmt.Errorf("open runs db: %w", err)
	}
	defer runsDB.Close()
	runs := runstore.NewStore(runsDB)

	eventsDB, err := dbopen.Open(cfg.Storage.EventsDB,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(observability.Schema))
	if err != nil {
		return fmt.Errorf("open events db: %w", err)
	}
	defer eventsDB.Close()

	events := observability.NewEventLogger(eventsDB)
	metrics := observability.NewMetricsManager(eventsDB, 256, 10*time.Second)
	defer metrics.Close()
	httpLog := observability.NewRequestLogger(eventsDB)
	defer httpLog.Close()

	// Digest pipeline.
	engineCfg := cfg.Triage.Engine
	engineCfg.Logger = logger
	engine, err := triage.New(engineCfg)
	if err != nil {
		return fmt.Errorf("triage engine: %w", err)
	}

	ingestCfg := cfg.IngestConfig()
	ingestCfg.Logger = logger
	runner := ingest.NewRunner(ingestCfg)

	var summarizer server.Summarizer
	client, err := llm.NewClient(cfg.ProviderConfig())
	switch {
	case err == nil:
		summarizer = client
	case errors.Is(err, llm.ErrMissingAPIKey):
		logger.Warn("no LLM API key configured, summarization disabled",
			"provider", cfg.LLM.Provider)
	default:
		return fmt.Errorf("llm client: %w", err)
	}

	srv := server.New(cfg, server.Deps{
		Ingester:   runner,
		Engine:     engine,
		Summarizer: summarizer,
		Runs:       runs,
		Events:     events,
		Metrics:    metrics,
		HTTPLog:    httpLog,
		Logger:     logger,
	})

	// Maintenance: prune summary files, metrics, events, and old runs.
	sched := cron.New()
	if _, err := sched.AddFunc("@hourly", func() {
		maintenance(cfg.Digest.OutputDir, cfg.Digest.MaxSummaries, runs, events, eventsDB, logger)
	}); err != nil {
		return fmt.Errorf("schedule maintenance: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	httpSrv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.Server.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("server stopped")
	return nil
}

func maintenance(outputDir string, maxSummaries int, runs *runstore.Store,
	events *observability.EventLogger, eventsDB *sql.DB, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := runstore.Cleanup(outputDir, maxSummaries, logger); err != nil {
		logger.Error("summary cleanup", "error", err)
	}
	if err := observability.Cleanup(ctx, eventsDB, observability.RetentionConfig{
		EventsDays:   retentionEventsDays,
		MetricsDays:  retentionMetricsDays,
		HTTPLogsDays: retentionHTTPDays,
	}); err != nil {
		logger.Error("observability cleanup", "error", err)
	}

	cutoff := time.Now().AddDate(0, 0, -retentionRunsDays)
	pruned, err := runs.PruneBefore(ctx, cutoff)
	if err != nil {
		logger.Error("run history prune", "error", err)
	}

	events.LogEvent(ctx, observability.Event{
		EventType: observability.EventRetentionRun,
		Details:   fmt.Sprintf(`{"runs_pruned":%d}`, pruned),
		Success:   err == nil,
	})
}

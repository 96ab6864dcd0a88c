package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/snackclub/snackboard/internal/config"
	"github.com/snackclub/snackboard/internal/logger"
	"github.com/snackclub/snackboard/internal/models"
	"github.com/snackclub/snackboard/internal/notify"
	"github.com/snackclub/snackboard/internal/ratings"
	"github.com/snackclub/snackboard/internal/report"
	"github.com/snackclub/snackboard/internal/server"
	"github.com/snackclub/snackboard/internal/sheets"
	"github.com/snackclub/snackboard/internal/storage"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

// leaderboardTopN caps the snacks listed in a Telegram announcement.
const leaderboardTopN = 5

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(cfg.Storage.DBPath, cfg.Storage.MaxSnapshots)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	client := sheets.NewClient(
		cfg.Sheets.RatingsURL,
		cfg.Sheets.NamesURL,
		cfg.Sheets.Timeout,
		cfg.Sheets.MaxRetries,
		cfg.Sheets.RetryDelayBase,
	)

	var notifier *notify.Client
	if cfg.Telegram.Enabled {
		notifier, err = notify.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	schema := schemaFromConfig(cfg.Columns)

	refresh := func(ctx context.Context) (*report.Report, error) {
		return runRefreshCycle(ctx, client, store, schema, cfg, time.Now())
	}

	srv := server.New(refresh)

	// Warm start: serve the last persisted snapshot until the first fetch
	// succeeds.
	if snap, err := store.LatestSnapshot(); err == nil {
		warm, buildErr := report.Build(
			ratings.FromRecords(snap.Records, schema.CategoryNames()),
			snap.SnackNames,
			snap.FetchedAt,
		)
		if buildErr != nil {
			logger.Warn("Failed to rebuild report from stored snapshot: %v", buildErr)
		} else {
			srv.SetReport(warm)
			logger.Info("Restored snapshot %s from %s (%d records)", snap.ID, snap.FetchedAt.Format(time.RFC3339), len(snap.Records))
		}
	} else if !errors.Is(err, storage.ErrNoSnapshots) {
		logger.Warn("Failed to load stored snapshot: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	var httpServer *http.Server
	if cfg.Server.Enabled {
		httpServer = &http.Server{
			Addr:    cfg.Server.ListenAddr,
			Handler: srv.Handler(),
		}
		go func() {
			logger.Info("HTTP API listening on %s", cfg.Server.ListenAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error: %v", err)
				cancel()
			}
		}()
	}

	logger.Info("Starting refresh loop (interval: %v, categories: %v)",
		cfg.Sheets.PollInterval, cfg.Columns.CategoryNames())

	ticker := time.NewTicker(cfg.Sheets.PollInterval)
	defer ticker.Stop()

	consecutiveFailures := 0
	lastLeader := ""

	runCycle := func(cycleTime time.Time) {
		rep, err := runRefreshCycle(ctx, client, store, schema, cfg, cycleTime)
		if err != nil {
			consecutiveFailures++
			logger.Error("Refresh cycle failed (%d consecutive): %v", consecutiveFailures, err)
			return
		}
		consecutiveFailures = 0
		srv.SetReport(rep)

		leader := ""
		if len(rep.Snacks) > 0 {
			leader = rep.Snacks[0].SnackID
		}
		if notifier != nil && leader != "" && leader != lastLeader && lastLeader != "" {
			if err := notifier.SendLeaderboard(rep, leaderboardTopN); err != nil {
				logger.Warn("Failed to send leaderboard notification: %v", err)
			} else {
				logger.Info("Sent leaderboard notification (new leader: %s)", leader)
			}
		}
		lastLeader = leader
	}

	logger.Debug("Running initial refresh cycle")
	runCycle(time.Now())

	for {
		select {
		case <-ctx.Done():
			if httpServer != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					logger.Error("HTTP server shutdown error: %v", err)
				}
				shutdownCancel()
			}
			logger.Info("Service stopped")
			return

		case tickTime := <-ticker.C:
			logger.Debug("Starting scheduled refresh cycle")
			runCycle(tickTime)
		}
	}
}

// runRefreshCycle fetches the sheets, cleans the rows, persists the
// snapshot, and builds a fresh report. A failing names sheet is not fatal:
// the dashboard falls back to raw snack IDs, matching the upstream
// behavior of showing IDs when the lookup is unavailable.
func runRefreshCycle(
	ctx context.Context,
	client *sheets.Client,
	store *storage.Storage,
	schema ratings.Schema,
	cfg *config.Config,
	cycleTime time.Time,
) (*report.Report, error) {
	startTime := time.Now()
	logger.Debug("Fetching ratings sheet")

	rows, err := client.FetchRatings(ctx)
	if err != nil {
		return nil, err
	}

	names, err := client.FetchSnackNames(ctx, cfg.Columns.NameID, cfg.Columns.NameLabel)
	if err != nil {
		logger.Warn("Could not load snack names sheet, showing IDs only: %v", err)
		names = nil
	}

	cleaned := ratings.Clean(rows, schema)
	logger.Info("Loaded %d ratings from %d people across %d snacks (%d rows dropped)",
		cleaned.Len(), len(cleaned.People()), len(cleaned.Snacks()), cleaned.Dropped())

	snap := &models.Snapshot{
		ID:         uuid.New().String(),
		FetchedAt:  cycleTime,
		Source:     "sheets-csv",
		Records:    cleaned.Records(),
		SnackNames: names,
	}
	if err := store.SaveSnapshot(snap, schema.CategoryNames()); err != nil {
		logger.Warn("Failed to persist snapshot: %v", err)
	}

	rep, err := report.Build(cleaned, names, cycleTime)
	if err != nil {
		return nil, err
	}
	if !rep.SimilarityAvailable {
		logger.Debug("Similarity unavailable: fewer than 2 distinct people")
	}

	logger.Info("Refresh cycle completed in %v", time.Since(startTime))
	return rep, nil
}

func schemaFromConfig(cols config.ColumnsConfig) ratings.Schema {
	schema := ratings.Schema{
		PersonColumn: cols.Person,
		SnackColumn:  cols.Snack,
	}
	for _, cat := range cols.Categories {
		schema.Categories = append(schema.Categories, ratings.Category{Name: cat.Name, Column: cat.Column})
	}
	return schema
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-reports/internal/app"
	"github.com/odyssey-erp/odyssey-reports/internal/export"
	"github.com/odyssey-erp/odyssey-reports/internal/locale"
	"github.com/odyssey-erp/odyssey-reports/internal/observability"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/db"
	"github.com/odyssey-erp/odyssey-reports/internal/trialbalance"
	"github.com/odyssey-erp/odyssey-reports/internal/view"
	"github.com/odyssey-erp/odyssey-reports/jobs"
	"github.com/odyssey-erp/odyssey-reports/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "worker")

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	var reportCache *cache.Versioned
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		reportCache = cache.NewVersioned(redisClient, "reports", cfg.ReportCacheTTL)
	}

	metrics := observability.NewMetrics()
	text := locale.NewEngine()

	tbService, err := trialbalance.NewService(trialbalance.ServiceParams{
		Accounts:    accounts.NewService(accounts.NewRepository(pool)),
		Ledger:      accounting.NewRepository(pool),
		Cache:       reportCache,
		Text:        text,
		Logger:      logger,
		Metrics:     metrics,
		LoadTimeout: cfg.ReportLoadTimeout,
	})
	if err != nil {
		logger.Error("init trial balance service", slog.Any("error", err))
		os.Exit(1)
	}

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	pdfClient, err := report.NewClient(cfg.GotenbergURL, report.Options{
		Timeout: cfg.PDFReadyTimeout,
		Retries: cfg.PDFMaxRetry,
	})
	if err != nil {
		logger.Error("init pdf renderer", slog.Any("error", err))
		os.Exit(1)
	}
	exporter, err := export.NewManager(export.ManagerParams{
		Formatter: export.NewFormatter(text),
		Documents: templates,
		PDF:       pdfClient,
		Defaults:  cfg.ExportDefaults(),
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		logger.Error("init export manager", slog.Any("error", err))
		os.Exit(1)
	}

	exportJob := trialbalance.NewExportJob(trialbalance.JobConfig{
		Loader:     tbService,
		Exporter:   exporter,
		StorageDir: cfg.ExportDir,
		Logger:     logger,
		Metrics:    metrics,
	})

	redisOpts, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		logger.Error("parse redis address", slog.Any("error", err))
		os.Exit(1)
	}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTrialBalanceExport, Handler: exportJob.Handle},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("export_dir", cfg.ExportDir))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

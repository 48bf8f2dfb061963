package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-reports/internal/app"
	"github.com/odyssey-erp/odyssey-reports/internal/export"
	"github.com/odyssey-erp/odyssey-reports/internal/locale"
	"github.com/odyssey-erp/odyssey-reports/internal/observability"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/db"
	"github.com/odyssey-erp/odyssey-reports/internal/rbac"
	"github.com/odyssey-erp/odyssey-reports/internal/trialbalance"
	trialbalancehttp "github.com/odyssey-erp/odyssey-reports/internal/trialbalance/http"
	"github.com/odyssey-erp/odyssey-reports/internal/view"
	"github.com/odyssey-erp/odyssey-reports/jobs"
	"github.com/odyssey-erp/odyssey-reports/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "odyssey")

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// The service keeps answering without Redis; loads go straight to Postgres.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	text := locale.NewEngine()

	var reportCache *cache.Versioned
	if redisClient != nil {
		reportCache = cache.NewVersioned(redisClient, "reports", cfg.ReportCacheTTL)
	}
	accountService := accounts.NewService(accounts.NewRepository(dbpool))
	tbService, err := trialbalance.NewService(trialbalance.ServiceParams{
		Accounts:    accountService,
		Ledger:      accounting.NewRepository(dbpool),
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
	if reportCache != nil {
		if err := tbService.WatchInvalidations(ctx); err != nil {
			logger.Warn("watch report cache invalidations", slog.Any("error", err))
		}
	}

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	reportClient, err := report.NewClient(cfg.GotenbergURL, report.Options{
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
		PDF:       reportClient,
		Defaults:  cfg.ExportDefaults(),
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		logger.Error("init export manager", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		logger.Error("parse redis address", slog.Any("error", err))
		os.Exit(1)
	}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	rbacMiddleware := rbac.Middleware{Checker: rbac.ContextChecker{}, Logger: logger}
	tbHandler, err := trialbalancehttp.NewHandler(trialbalancehttp.Params{
		Loader:      tbService,
		Exporter:    exporter,
		Jobs:        jobClient,
		RBAC:        rbacMiddleware,
		Logger:      logger,
		ExportLimit: cfg.ExportRateLimit,
	})
	if err != nil {
		logger.Error("init trial balance handler", slog.Any("error", err))
		os.Exit(1)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		RBACMiddleware:      rbacMiddleware,
		AccountsHandler:     accounts.NewHandler(logger, accountService),
		TrialBalanceHandler: tbHandler,
		ReportHandler:       report.NewHandler(reportClient, logger),
		JobHandler:          jobs.NewHandler(inspector, logger),
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

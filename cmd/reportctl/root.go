package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-reports/internal/app"
	"github.com/odyssey-erp/odyssey-reports/internal/export"
	"github.com/odyssey-erp/odyssey-reports/internal/locale"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/db"
	"github.com/odyssey-erp/odyssey-reports/internal/trialbalance"
	"github.com/odyssey-erp/odyssey-reports/internal/view"
	"github.com/odyssey-erp/odyssey-reports/report"
)

var (
	flagVerbose bool

	flagOrg        string
	flagProject    string
	flagFrom       string
	flagTo         string
	flagPostedOnly bool
	flagActiveOnly bool
	flagExpand     string
	flagLang       string
)

var rootCmd = &cobra.Command{
	Use:           "reportctl",
	Short:         "Operate the trial balance report service",
	Long:          "Load trial balances, export them, and manage the export queue and report cache from the command line.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log to stderr")
}

// addFilterFlags registers the trial balance filter flags on cmd.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagOrg, "org", "", "Organization id")
	cmd.Flags().StringVar(&flagProject, "project", "", "Project id")
	cmd.Flags().StringVar(&flagFrom, "from", "", "Start date (yyyy-mm-dd), defaults to January 1 of --to")
	cmd.Flags().StringVar(&flagTo, "to", "", "End date (yyyy-mm-dd), defaults to today")
	cmd.Flags().BoolVar(&flagPostedOnly, "posted-only", false, "Only include posted entries")
	cmd.Flags().BoolVar(&flagActiveOnly, "active-only", false, "Hide inactive accounts")
	cmd.Flags().StringVar(&flagExpand, "expand", "", "Expansion: none, all, level:N or ids:a,b")
	cmd.Flags().StringVar(&flagLang, "lang", "ar", "Language: ar or en")
	_ = cmd.MarkFlagRequired("org")
}

func filterFromFlags(now time.Time) (trialbalance.Filter, error) {
	return trialbalance.ParseFilter(flagOrg, flagProject, flagFrom, flagTo, flagPostedOnly, flagActiveOnly, now)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// runtime holds the collaborators shared by the commands.
type runtime struct {
	cfg    *app.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	redis  *redis.Client
	cache  *cache.Versioned
	text   *locale.Engine
}

func openRuntime(ctx context.Context, needDB bool) (*runtime, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if flagVerbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	rt := &runtime{cfg: cfg, logger: logger, text: locale.NewEngine()}
	if needDB {
		rt.pool, err = db.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, err
		}
	}
	rt.redis, err = cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		if !needDB {
			rt.Close()
			return nil, err
		}
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
	} else {
		rt.cache = cache.NewVersioned(rt.redis, "reports", cfg.ReportCacheTTL)
	}
	return rt, nil
}

func (rt *runtime) Close() {
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
	if rt.pool != nil {
		rt.pool.Close()
	}
}

func (rt *runtime) service() (*trialbalance.Service, error) {
	if rt.pool == nil {
		return nil, errors.New("database not connected")
	}
	return trialbalance.NewService(trialbalance.ServiceParams{
		Accounts:    accounts.NewService(accounts.NewRepository(rt.pool)),
		Ledger:      accounting.NewRepository(rt.pool),
		Cache:       rt.cache,
		Text:        rt.text,
		Logger:      rt.logger,
		LoadTimeout: rt.cfg.ReportLoadTimeout,
	})
}

func (rt *runtime) exporter() (*export.Manager, error) {
	templates, err := view.NewEngine()
	if err != nil {
		return nil, err
	}
	pdf, err := report.NewClient(rt.cfg.GotenbergURL, report.Options{
		Timeout: rt.cfg.PDFReadyTimeout,
		Retries: rt.cfg.PDFMaxRetry,
	})
	if err != nil {
		return nil, err
	}
	return export.NewManager(export.ManagerParams{
		Formatter: export.NewFormatter(rt.text),
		Documents: templates,
		PDF:       pdf,
		Defaults:  rt.cfg.ExportDefaults(),
		Logger:    rt.logger,
	})
}

package trialbalance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-reports/internal/locale"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/httpx"
)

const defaultLoadTimeout = 30 * time.Second

// AccountLister returns an organization's chart of accounts.
type AccountLister interface {
	List(ctx context.Context, orgID string, activeOnly bool) ([]accounts.Account, error)
}

// LedgerReader returns per-account amounts and the tenant display name.
type LedgerReader interface {
	AccountSummary(ctx context.Context, filter accounting.SummaryFilter) (map[string]accounting.Amounts, error)
	TenantName(ctx context.Context, orgID string) (string, error)
}

// Metrics receives tree build and cache observations.
type Metrics interface {
	ObserveTreeBuild(nodes, orphans int, elapsed time.Duration)
	ObserveCache(hit bool)
}

// ServiceParams wires the service's collaborators. Cache and Metrics are optional.
type ServiceParams struct {
	Accounts    AccountLister
	Ledger      LedgerReader
	Cache       *cache.Versioned
	Text        *locale.Engine
	Logger      *slog.Logger
	Metrics     Metrics
	LoadTimeout time.Duration
	Clock       func() time.Time
}

// Service loads trial balance snapshots.
type Service struct {
	accounts AccountLister
	ledger   LedgerReader
	cache    *cache.Versioned
	text     *locale.Engine
	logger   *slog.Logger
	metrics  Metrics
	timeout  time.Duration
	now      func() time.Time
	validate *validator.Validate
	group    singleflight.Group
}

// NewService constructs a Service.
func NewService(p ServiceParams) (*Service, error) {
	if p.Accounts == nil || p.Ledger == nil {
		return nil, errors.New("trialbalance: account lister and ledger reader required")
	}
	if p.Text == nil {
		p.Text = locale.NewEngine()
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.LoadTimeout <= 0 {
		p.LoadTimeout = defaultLoadTimeout
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	return &Service{
		accounts: p.Accounts,
		ledger:   p.Ledger,
		cache:    p.Cache,
		text:     p.Text,
		logger:   p.Logger,
		metrics:  p.Metrics,
		timeout:  p.LoadTimeout,
		now:      p.Clock,
		validate: validator.New(),
	}, nil
}

// ledgerData is the cached result of the three upstream reads.
type ledgerData struct {
	CompanyName string                        `json:"company_name"`
	Accounts    []accounts.Account            `json:"accounts"`
	Amounts     map[string]accounting.Amounts `json:"amounts"`
}

// Load builds the snapshot for f. Identical concurrent loads share one
// upstream fetch; a caller that gives up does not cancel the others.
func (s *Service) Load(ctx context.Context, f Filter) (*Snapshot, error) {
	f = f.normalized()
	if err := s.validate.Struct(f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	ch := s.group.DoChan(strings.Join(f.key(), ":"), func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		data, err := s.fetch(loadCtx, f)
		if err != nil {
			return nil, err
		}
		return s.build(f, data), nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

// Invalidate bumps the cache version so the next load reads the ledger again.
func (s *Service) Invalidate(ctx context.Context) error {
	ver, err := s.cache.Bump(ctx)
	if err != nil {
		return fmt.Errorf("%w: cache bump: %w", httpx.ErrUpstream, err)
	}
	s.logger.Info("report cache invalidated", slog.Int64("version", ver))
	return nil
}

// WatchInvalidations logs version bumps published by other instances.
func (s *Service) WatchInvalidations(ctx context.Context) error {
	return s.cache.ListenForInvalidation(ctx, func(version int64) {
		s.logger.Debug("report cache version changed", slog.Int64("version", version))
	})
}

func (s *Service) fetch(ctx context.Context, f Filter) (ledgerData, error) {
	if s.cache == nil {
		return s.query(ctx, f)
	}
	key, err := s.cache.BuildKey(ctx, f.key()...)
	if err != nil {
		s.logger.Warn("report cache unavailable", slog.Any("error", err))
		return s.query(ctx, f)
	}
	var (
		data    ledgerData
		loadErr error
	)
	hit, err := s.cache.FetchJSON(ctx, key, &data, func(ctx context.Context) (any, error) {
		d, err := s.query(ctx, f)
		loadErr = err
		return d, err
	})
	if loadErr != nil {
		return ledgerData{}, loadErr
	}
	if err != nil {
		s.logger.Warn("report cache read failed", slog.String("key", key), slog.Any("error", err))
		return s.query(ctx, f)
	}
	if s.metrics != nil {
		s.metrics.ObserveCache(hit)
	}
	return data, nil
}

// query reads accounts, amounts and the tenant name concurrently.
func (s *Service) query(ctx context.Context, f Filter) (ledgerData, error) {
	var data ledgerData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.accounts.List(gctx, f.OrgID, f.ActiveOnly)
		if err != nil {
			return fmt.Errorf("accounts: %w", err)
		}
		data.Accounts = rows
		return nil
	})
	g.Go(func() error {
		amounts, err := s.ledger.AccountSummary(gctx, f.Summary())
		if err != nil {
			return fmt.Errorf("account summary: %w", err)
		}
		data.Amounts = amounts
		return nil
	})
	g.Go(func() error {
		name, err := s.ledger.TenantName(gctx, f.OrgID)
		if err != nil {
			// The report is still usable without a display name.
			if !errors.Is(err, accounting.ErrTenantNotFound) {
				s.logger.Warn("tenant name unavailable", slog.String("org_id", f.OrgID), slog.Any("error", err))
			}
			return nil
		}
		data.CompanyName = name
		return nil
	})
	if err := g.Wait(); err != nil {
		return ledgerData{}, fmt.Errorf("%w: trialbalance: %w", httpx.ErrUpstream, err)
	}
	return data, nil
}

func (s *Service) build(f Filter, data ledgerData) *Snapshot {
	started := time.Now()
	forest := reports.Build(data.Accounts, data.Amounts, s.text.CompareCodes)
	reports.RollupForest(forest)
	balance := reports.CheckBalance(forest.Roots)
	if s.metrics != nil {
		s.metrics.ObserveTreeBuild(forest.Len(), len(forest.Orphans), time.Since(started))
	}

	snap := &Snapshot{
		Filter:      f,
		CompanyName: data.CompanyName,
		Forest:      forest,
		Balance:     balance,
		LoadedAt:    s.now().UTC(),
	}
	logger := s.logger.With(slog.String("org_id", f.OrgID))
	if n := len(forest.Orphans); n > 0 {
		logger.Warn("accounts with unresolved parents promoted to roots", slog.Int("count", n), slog.Any("ids", forest.Orphans))
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("%d account(s) reference a missing parent and are shown at the top level", n))
	}
	if n := len(forest.Duplicates); n > 0 {
		logger.Warn("duplicate account ids ignored", slog.Int("count", n), slog.Any("ids", forest.Duplicates))
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("%d duplicate account row(s) were ignored", n))
	}
	unknown := 0
	for id := range data.Amounts {
		if _, ok := forest.Find(id); !ok {
			unknown++
		}
	}
	if unknown > 0 {
		logger.Warn("amounts for unknown accounts ignored", slog.Int("count", unknown))
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("amounts for %d unknown account(s) were ignored", unknown))
	}
	if !balance.Balanced {
		logger.Info("trial balance out of balance", slog.String("difference", balance.Difference.StringFixed(2)))
	}
	return snap
}

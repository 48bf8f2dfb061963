package trialbalance

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/accounts"
	_ "github.com/odyssey-erp/odyssey-reports/testing"
)

func strPtr(s string) *string { return &s }

func row(id, code string, level int, parent, category string) accounts.Account {
	a := accounts.Account{ID: id, Code: code, Name: "Account " + code, NameLocalized: strPtr("حساب " + code), Level: level, Status: accounts.StatusActive}
	if parent != "" {
		a.ParentID = strPtr(parent)
	}
	if category != "" {
		a.Category = strPtr(category)
	}
	return a
}

func closing(debit, credit int64) accounting.Amounts {
	return accounting.Amounts{ClosingDebit: decimal.NewFromInt(debit), ClosingCredit: decimal.NewFromInt(credit)}
}

type fakeAccounts struct {
	rows  []accounts.Account
	err   error
	gate  chan struct{}
	calls atomic.Int32
}

func (f *fakeAccounts) List(ctx context.Context, _ string, _ bool) ([]accounts.Account, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.rows, f.err
}

type fakeLedger struct {
	amounts map[string]accounting.Amounts
	name    string
	nameErr error
	err     error
}

func (f *fakeLedger) AccountSummary(context.Context, accounting.SummaryFilter) (map[string]accounting.Amounts, error) {
	return f.amounts, f.err
}

func (f *fakeLedger) TenantName(context.Context, string) (string, error) {
	return f.name, f.nameErr
}

type fakeMetrics struct {
	mu     sync.Mutex
	hits   []bool
	builds int
	jobs   []error
}

func (m *fakeMetrics) ObserveTreeBuild(int, int, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.builds++
}

func (m *fakeMetrics) ObserveCache(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits = append(m.hits, hit)
}

func (m *fakeMetrics) ObserveJob(_ string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, err)
}

// ledgerFixture: 1 > {11, 12}, 2, and 9 whose parent is missing.
func ledgerFixture() (*fakeAccounts, *fakeLedger) {
	accts := &fakeAccounts{rows: []accounts.Account{
		row("a2", "2", 1, "", accounts.CategoryLiability),
		row("a12", "12", 2, "a1", ""),
		row("a1", "1", 1, "", accounts.CategoryAsset),
		row("a11", "11", 2, "a1", ""),
		row("a9", "9", 2, "gone", ""),
	}}
	ledger := &fakeLedger{
		name: "شركة الاختبار",
		amounts: map[string]accounting.Amounts{
			"a11":     closing(100, 0),
			"a12":     closing(50, 0),
			"a2":      closing(0, 150),
			"unknown": closing(5, 0),
		},
	}
	return accts, ledger
}

func testFilter() Filter {
	return Filter{
		OrgID: "org-1",
		From:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		To:    time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
	}
}

var fixedNow = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, accts AccountLister, ledger LedgerReader, extra func(*ServiceParams)) *Service {
	t.Helper()
	p := ServiceParams{Accounts: accts, Ledger: ledger, Clock: func() time.Time { return fixedNow }}
	if extra != nil {
		extra(&p)
	}
	svc, err := NewService(p)
	require.NoError(t, err)
	return svc
}

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	accts, ledger := ledgerFixture()
	snap, err := newTestService(t, accts, ledger, nil).Load(context.Background(), testFilter())
	require.NoError(t, err)
	return snap
}

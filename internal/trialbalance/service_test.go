package trialbalance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/httpx"
)

func TestLoadBuildsSnapshot(t *testing.T) {
	snap := testSnapshot(t)

	assert.Equal(t, "شركة الاختبار", snap.CompanyName)
	assert.Equal(t, fixedNow, snap.LoadedAt)
	require.Len(t, snap.Forest.Roots, 3)
	assert.Equal(t, "1", snap.Forest.Roots[0].Code)
	assert.Equal(t, "2", snap.Forest.Roots[1].Code)
	assert.Equal(t, "9", snap.Forest.Roots[2].Code)
	assert.Equal(t, []string{"a9"}, snap.Forest.Orphans)
	assert.Equal(t, "150", snap.Forest.Roots[0].Rollup.ClosingDebit.String())

	assert.True(t, snap.Balance.Balanced)
	require.Len(t, snap.Warnings, 2)
	assert.Contains(t, snap.Warnings[0], "missing parent")
	assert.Contains(t, snap.Warnings[1], "unknown account")
}

func TestLoadRejectsInvalidFilter(t *testing.T) {
	accts, ledger := ledgerFixture()
	svc := newTestService(t, accts, ledger, nil)

	f := testFilter()
	f.OrgID = "  "
	_, err := svc.Load(context.Background(), f)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFilter)
	assert.True(t, IsInvalid(err))

	f = testFilter()
	f.From, f.To = f.To, f.From
	_, err = svc.Load(context.Background(), f)
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Zero(t, accts.calls.Load())
}

func TestLoadWrapsUpstreamErrors(t *testing.T) {
	accts, ledger := ledgerFixture()
	ledger.err = errors.New("connection refused")
	_, err := newTestService(t, accts, ledger, nil).Load(context.Background(), testFilter())
	require.Error(t, err)
	assert.ErrorIs(t, err, httpx.ErrUpstream)
	assert.False(t, IsInvalid(err))
}

func TestLoadToleratesMissingTenant(t *testing.T) {
	accts, ledger := ledgerFixture()
	ledger.name = ""
	ledger.nameErr = accounting.ErrTenantNotFound
	snap, err := newTestService(t, accts, ledger, nil).Load(context.Background(), testFilter())
	require.NoError(t, err)
	assert.Empty(t, snap.CompanyName)
}

func TestLoadUsesVersionedCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	accts, ledger := ledgerFixture()
	metrics := &fakeMetrics{}
	svc := newTestService(t, accts, ledger, func(p *ServiceParams) {
		p.Cache = cache.NewVersioned(client, "reports", time.Minute)
		p.Metrics = metrics
	})
	ctx := context.Background()

	first, err := svc.Load(ctx, testFilter())
	require.NoError(t, err)
	second, err := svc.Load(ctx, testFilter())
	require.NoError(t, err)
	assert.Equal(t, int32(1), accts.calls.Load())
	assert.Equal(t, first.Forest.Len(), second.Forest.Len())
	assert.True(t, first.Forest.Roots[0].Rollup.Equal(second.Forest.Roots[0].Rollup))

	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.Load(ctx, testFilter())
	require.NoError(t, err)
	assert.Equal(t, int32(2), accts.calls.Load())

	assert.Equal(t, []bool{false, true, false}, metrics.hits)
	assert.Equal(t, 3, metrics.builds)
}

func TestLoadFallsBackWhenCacheIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	accts, ledger := ledgerFixture()
	svc := newTestService(t, accts, ledger, func(p *ServiceParams) {
		p.Cache = cache.NewVersioned(client, "reports", time.Minute)
	})
	snap, err := svc.Load(context.Background(), testFilter())
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Forest.Len())
}

func TestLoadCoalescesConcurrentCalls(t *testing.T) {
	accts, ledger := ledgerFixture()
	accts.gate = make(chan struct{})
	svc := newTestService(t, accts, ledger, nil)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*Snapshot, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := svc.Load(context.Background(), testFilter())
			assert.NoError(t, err)
			results[i] = snap
		}(i)
	}
	require.Eventually(t, func() bool { return accts.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(accts.gate)
	wg.Wait()

	assert.Equal(t, int32(1), accts.calls.Load())
	for _, snap := range results {
		assert.Same(t, results[0], snap)
	}
}

func TestLoadCallerCancellation(t *testing.T) {
	accts, ledger := ledgerFixture()
	accts.gate = make(chan struct{})
	defer close(accts.gate)
	svc := newTestService(t, accts, ledger, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.Load(ctx, testFilter())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

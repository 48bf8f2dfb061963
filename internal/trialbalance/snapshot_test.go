package trialbalance

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-reports/internal/export"
	"github.com/odyssey-erp/odyssey-reports/internal/locale"
)

func TestSnapshotTrialBalanceFollowsExpansion(t *testing.T) {
	snap := testSnapshot(t)

	collapsed := snap.TrialBalance(reports.NewExpansion(), locale.Arabic)
	require.Len(t, collapsed.Rows, 3)
	assert.Equal(t, "حساب 1", collapsed.Rows[0].Name)
	assert.True(t, collapsed.Rows[0].HasChildren)
	assert.Equal(t, 2, collapsed.Levels)

	expanded := snap.TrialBalance(reports.NewExpansion("a1"), locale.English)
	require.Len(t, expanded.Rows, 5)
	assert.Equal(t, []string{"1", "11", "12", "2", "9"}, codes(expanded))
	assert.Equal(t, "Account 11", expanded.Rows[1].Name)
	assert.True(t, expanded.Totals.ClosingDebit.Equal(decimal.NewFromInt(150)))
	assert.True(t, expanded.Totals.ClosingCredit.Equal(decimal.NewFromInt(150)))
}

func TestNilSnapshotRendersEmptyReport(t *testing.T) {
	var snap *Snapshot
	tb := snap.TrialBalance(reports.NewExpansion(), locale.Arabic)
	assert.NotNil(t, tb.Rows)
	assert.Empty(t, tb.Rows)
}

func TestSnapshotViewModel(t *testing.T) {
	snap := testSnapshot(t)
	vm := snap.ViewModel(reports.NewExpansion(), locale.English)
	assert.Equal(t, "شركة الاختبار", vm.CompanyName)
	assert.Equal(t, "From 2026-01-01 to 2026-09-30", vm.PeriodLabel)
	assert.Equal(t, "org-1", vm.FilterOrg)
	assert.NotNil(t, vm.Expanded)
	assert.Empty(t, vm.Expanded)
	assert.Equal(t, []string{"a9"}, vm.Orphans)
	assert.Len(t, vm.Warnings, 2)
	assert.Len(t, vm.Report.Rows, 3)
}

func TestSnapshotTable(t *testing.T) {
	snap := testSnapshot(t)
	table := snap.Table(reports.NewExpansion("a1"), TableOptions{Language: locale.English})

	require.Len(t, table.Columns, 9)
	assert.Equal(t, "code", table.Columns[0].Key)
	assert.Equal(t, export.TypeNumber, table.Columns[2].Type)
	assert.Equal(t, "Closing debit", table.Columns[7].Header)
	assert.Equal(t, export.TypeCurrency, table.Columns[8].Type)

	require.Len(t, table.Rows, 5)
	parent := table.Rows[0]
	assert.Equal(t, "1", parent["code"])
	assert.Equal(t, 1, parent["level"])
	assert.True(t, parent["closing_debit"].(decimal.Decimal).Equal(decimal.NewFromInt(150)))

	assert.Equal(t, "Total", table.Summary["name"])
	assert.True(t, table.Summary["closing_credit"].(decimal.Decimal).Equal(decimal.NewFromInt(150)))

	require.Len(t, table.Metadata.PrependRows, 3)
	assert.Equal(t, []any{"Company", "شركة الاختبار"}, table.Metadata.PrependRows[0])
	assert.Equal(t, []any{"Balance", "Balanced"}, table.Metadata.PrependRows[2])
}

func TestSnapshotTableOwnAmounts(t *testing.T) {
	snap := testSnapshot(t)
	table := snap.Table(reports.NewExpansion(), TableOptions{OwnAmounts: true})

	assert.Equal(t, "رمز الحساب", table.Columns[0].Header)
	assert.True(t, table.Rows[0]["closing_debit"].(decimal.Decimal).IsZero())
	assert.Equal(t, "الإجمالي", table.Summary["name"])
}

func TestSnapshotTableOutOfBalance(t *testing.T) {
	accts, ledger := ledgerFixture()
	ledger.amounts["a2"] = closing(0, 100)
	ledger.name = ""
	snap, err := newTestService(t, accts, ledger, nil).Load(context.Background(), testFilter())
	require.NoError(t, err)
	assert.False(t, snap.Balance.Balanced)

	table := snap.Table(reports.NewExpansion(), TableOptions{Language: locale.English})
	assert.Equal(t, []any{"Company", "org-1"}, table.Metadata.PrependRows[0])
	assert.Equal(t, []any{"Balance", "Out of balance by 50.00"}, table.Metadata.PrependRows[2])
}

func TestSnapshotStatements(t *testing.T) {
	snap := testSnapshot(t)
	st := snap.Statements(locale.English)
	assert.Equal(t, "شركة الاختبار", st.CompanyName)
	assert.Equal(t, "From 2026-01-01 to 2026-09-30", st.PeriodLabel)
}

func codes(tb reports.TrialBalance) []string {
	out := make([]string, len(tb.Rows))
	for i, r := range tb.Rows {
		out[i] = r.Code
	}
	return out
}

package reports

import (
	"github.com/odyssey-erp/odyssey-reports/internal/accounting"
)

// TrialBalanceRow is a visible row of the all-levels trial balance.
type TrialBalanceRow struct {
	ID          string             `json:"id"`
	Code        string             `json:"code"`
	Name        string             `json:"name"`
	Level       int                `json:"level"`
	HasChildren bool               `json:"has_children"`
	Expanded    bool               `json:"expanded"`
	Amounts     accounting.Amounts `json:"amounts"`
	Own         accounting.Amounts `json:"own"`
}

// TrialBalance is the structure rendered by the UI and fed to exports.
type TrialBalance struct {
	Rows    []TrialBalanceRow  `json:"rows"`
	Totals  accounting.Amounts `json:"totals"`
	Balance BalanceCheck       `json:"balance"`
	Levels  int                `json:"levels"`
}

// BuildTrialBalance flattens the rolled-up forest at the current expansion
// state. Parents carry consolidated rollups; leaves carry their own amounts.
func BuildTrialBalance(f *Forest, e *Expansion, localized bool) TrialBalance {
	result := TrialBalance{Rows: []TrialBalanceRow{}}
	if f == nil {
		return result
	}
	for _, n := range VisibleRows(f.Roots, e) {
		result.Rows = append(result.Rows, TrialBalanceRow{
			ID:          n.ID,
			Code:        n.Code,
			Name:        n.DisplayName(localized),
			Level:       n.Level,
			HasChildren: n.HasChildren(),
			Expanded:    e.IsExpanded(n.ID),
			Amounts:     n.Rollup,
			Own:         n.Amounts,
		})
	}
	for _, root := range f.Roots {
		result.Totals = result.Totals.Add(root.Rollup)
	}
	result.Balance = CheckBalance(f.Roots)
	result.Levels = f.MaxLevel()
	return result
}

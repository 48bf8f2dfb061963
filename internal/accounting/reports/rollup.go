package reports

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting"
)

// Rollup stores node.Amounts plus the rollup of every child in node.Rollup.
func Rollup(node *Node) accounting.Amounts {
	if node == nil {
		return accounting.Amounts{}
	}
	total := node.Amounts
	for _, child := range node.Children {
		total = total.Add(Rollup(child))
	}
	node.Rollup = total
	return total
}

// RollupForest rolls up every root and returns the grand total.
func RollupForest(f *Forest) accounting.Amounts {
	var total accounting.Amounts
	if f == nil {
		return total
	}
	for _, root := range f.Roots {
		total = total.Add(Rollup(root))
	}
	return total
}

// BalanceCheck compares closing debit and credit totals over the roots.
type BalanceCheck struct {
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Difference  decimal.Decimal `json:"difference"`
	Balanced    bool            `json:"balanced"`
}

// CheckBalance reports whether closing debits and credits agree within
// accounting.BalanceEpsilon. It is informational only.
func CheckBalance(roots []*Node) BalanceCheck {
	var check BalanceCheck
	for _, r := range roots {
		check.TotalDebit = check.TotalDebit.Add(r.Rollup.ClosingDebit)
		check.TotalCredit = check.TotalCredit.Add(r.Rollup.ClosingCredit)
	}
	check.Difference = check.TotalDebit.Sub(check.TotalCredit)
	check.Balanced = check.Difference.Abs().LessThan(accounting.BalanceEpsilon)
	return check
}

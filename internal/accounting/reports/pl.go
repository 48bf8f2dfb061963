package reports

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/accounts"
)

// StatementLine summarises a top-most account of a category.
type StatementLine struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// StatementSection groups lines by nature.
type StatementSection struct {
	Label string          `json:"label"`
	Lines []StatementLine `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// ProfitAndLoss contains the structured output for the report.
type ProfitAndLoss struct {
	Revenue   StatementSection `json:"revenue"`
	Expense   StatementSection `json:"expense"`
	NetIncome decimal.Decimal  `json:"net_income"`
}

// BuildProfitAndLoss aggregates period movements of revenue and expense accounts.
func BuildProfitAndLoss(f *Forest, localized bool) ProfitAndLoss {
	revenue := StatementSection{Label: label(localized, "الإيرادات", "Revenue"), Lines: []StatementLine{}}
	expense := StatementSection{Label: label(localized, "المصروفات", "Expense"), Lines: []StatementLine{}}

	for _, head := range categoryHeads(f) {
		switch head.category {
		case accounts.CategoryRevenue:
			line := StatementLine{Code: head.node.Code, Name: head.node.DisplayName(localized), Amount: head.node.Rollup.PeriodNet().Neg()}
			revenue.Lines = append(revenue.Lines, line)
			revenue.Total = revenue.Total.Add(line.Amount)
		case accounts.CategoryExpense:
			line := StatementLine{Code: head.node.Code, Name: head.node.DisplayName(localized), Amount: head.node.Rollup.PeriodNet()}
			expense.Lines = append(expense.Lines, line)
			expense.Total = expense.Total.Add(line.Amount)
		}
	}

	return ProfitAndLoss{
		Revenue:   revenue,
		Expense:   expense,
		NetIncome: revenue.Total.Sub(expense.Total),
	}
}

// label returns ar for localized output and en otherwise.
func label(localized bool, ar, en string) string {
	if localized {
		return ar
	}
	return en
}

type categoryHead struct {
	category string
	node     *Node
}

// categoryHeads returns, in pre-order, the top-most node of every category
// run so that rollups are counted once. Nodes without a category inherit
// their parent's.
func categoryHeads(f *Forest) []categoryHead {
	var heads []categoryHead
	if f == nil {
		return heads
	}
	var visit func(nodes []*Node, inherited string)
	visit = func(nodes []*Node, inherited string) {
		for _, n := range nodes {
			cat := inherited
			if n.Category != nil && strings.TrimSpace(*n.Category) != "" {
				cat = strings.ToLower(strings.TrimSpace(*n.Category))
			}
			if cat != "" && cat != inherited {
				heads = append(heads, categoryHead{category: cat, node: n})
				// Descendants of a head are already in its rollup.
				continue
			}
			visit(n.Children, cat)
		}
	}
	visit(f.Roots, "")
	return heads
}

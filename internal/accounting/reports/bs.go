package reports

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/accounts"
)

// BalanceSheet is the structured response for the balance sheet report.
type BalanceSheet struct {
	Assets                    StatementSection `json:"assets"`
	Liabilities               StatementSection `json:"liabilities"`
	Equity                    StatementSection `json:"equity"`
	TotalLiabilitiesAndEquity decimal.Decimal  `json:"total_liabilities_and_equity"`
	Balanced                  bool             `json:"balanced"`
}

// BuildBalanceSheet aggregates closing balances into assets, liabilities, and equity.
// Current-period earnings from revenue and expense accounts are added to equity.
func BuildBalanceSheet(f *Forest, localized bool) BalanceSheet {
	assets := StatementSection{Label: label(localized, "الأصول", "Assets"), Lines: []StatementLine{}}
	liabilities := StatementSection{Label: label(localized, "الخصوم", "Liabilities"), Lines: []StatementLine{}}
	equity := StatementSection{Label: label(localized, "حقوق الملكية", "Equity"), Lines: []StatementLine{}}
	earnings := decimal.Zero

	for _, head := range categoryHeads(f) {
		n := head.node
		switch head.category {
		case accounts.CategoryAsset:
			line := StatementLine{Code: n.Code, Name: n.DisplayName(localized), Amount: n.Rollup.ClosingNet()}
			assets.Lines = append(assets.Lines, line)
			assets.Total = assets.Total.Add(line.Amount)
		case accounts.CategoryLiability:
			line := StatementLine{Code: n.Code, Name: n.DisplayName(localized), Amount: n.Rollup.ClosingNet().Neg()}
			liabilities.Lines = append(liabilities.Lines, line)
			liabilities.Total = liabilities.Total.Add(line.Amount)
		case accounts.CategoryEquity:
			line := StatementLine{Code: n.Code, Name: n.DisplayName(localized), Amount: n.Rollup.ClosingNet().Neg()}
			equity.Lines = append(equity.Lines, line)
			equity.Total = equity.Total.Add(line.Amount)
		case accounts.CategoryRevenue, accounts.CategoryExpense:
			earnings = earnings.Add(n.Rollup.ClosingNet().Neg())
		}
	}
	if !earnings.IsZero() {
		equity.Lines = append(equity.Lines, StatementLine{Name: label(localized, "أرباح الفترة الحالية", "Current earnings"), Amount: earnings})
		equity.Total = equity.Total.Add(earnings)
	}

	total := liabilities.Total.Add(equity.Total)
	return BalanceSheet{
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		TotalLiabilitiesAndEquity: total,
		Balanced:                  assets.Total.Sub(total).Abs().LessThan(accounting.BalanceEpsilon),
	}
}

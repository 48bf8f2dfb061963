package trialbalance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-reports/internal/export"
	"github.com/odyssey-erp/odyssey-reports/internal/locale"
)

// Snapshot is one loaded, rolled-up trial balance. It is shared between
// callers and must not be mutated.
type Snapshot struct {
	Filter      Filter               `json:"filter"`
	CompanyName string               `json:"company_name"`
	Forest      *reports.Forest      `json:"-"`
	Balance     reports.BalanceCheck `json:"balance"`
	Warnings    []string             `json:"warnings,omitempty"`
	LoadedAt    time.Time            `json:"loaded_at"`
}

// TrialBalance flattens the snapshot at the given expansion state.
func (s *Snapshot) TrialBalance(e *reports.Expansion, lang locale.Language) reports.TrialBalance {
	if s == nil {
		return reports.BuildTrialBalance(nil, e, false)
	}
	return reports.BuildTrialBalance(s.Forest, e, lang == locale.Arabic)
}

// ViewModel is the JSON served by the trial balance endpoint.
func (s *Snapshot) ViewModel(e *reports.Expansion, lang locale.Language) reports.TrialBalanceViewModel {
	vm := reports.TrialBalanceViewModel{
		CompanyName: s.CompanyName,
		PeriodLabel: s.Filter.PeriodLabel(lang),
		FilterOrg:   s.Filter.OrgID,
		FilterProj:  s.Filter.ProjectID,
		PostedOnly:  s.Filter.PostedOnly,
		Expanded:    e.IDs(),
		Orphans:     s.Forest.Orphans,
		Warnings:    s.Warnings,
		Report:      s.TrialBalance(e, lang),
	}
	if vm.Expanded == nil {
		vm.Expanded = []string{}
	}
	return vm
}

// Statements builds the profit & loss and balance sheet summaries.
func (s *Snapshot) Statements(lang locale.Language) reports.StatementsViewModel {
	localized := lang == locale.Arabic
	return reports.StatementsViewModel{
		CompanyName:   s.CompanyName,
		PeriodLabel:   s.Filter.PeriodLabel(lang),
		ProfitAndLoss: reports.BuildProfitAndLoss(s.Forest, localized),
		BalanceSheet:  reports.BuildBalanceSheet(s.Forest, localized),
	}
}

// TableOptions tune the export table.
type TableOptions struct {
	Language locale.Language
	// OwnAmounts exports each row's own postings instead of rollups.
	OwnAmounts bool
}

type bucket struct {
	key    string
	ar, en string
	pick   func(accounting.Amounts) decimal.Decimal
}

var buckets = []bucket{
	{"opening_debit", "رصيد افتتاحي مدين", "Opening debit", func(a accounting.Amounts) decimal.Decimal { return a.OpeningDebit }},
	{"opening_credit", "رصيد افتتاحي دائن", "Opening credit", func(a accounting.Amounts) decimal.Decimal { return a.OpeningCredit }},
	{"period_debits", "حركة مدينة", "Period debits", func(a accounting.Amounts) decimal.Decimal { return a.PeriodDebits }},
	{"period_credits", "حركة دائنة", "Period credits", func(a accounting.Amounts) decimal.Decimal { return a.PeriodCredits }},
	{"closing_debit", "رصيد ختامي مدين", "Closing debit", func(a accounting.Amounts) decimal.Decimal { return a.ClosingDebit }},
	{"closing_credit", "رصيد ختامي دائن", "Closing credit", func(a accounting.Amounts) decimal.Decimal { return a.ClosingCredit }},
}

func pick(lang locale.Language, ar, en string) string {
	if lang == locale.English {
		return en
	}
	return ar
}

// Table builds the export table from the visible rows at e.
func (s *Snapshot) Table(e *reports.Expansion, opts TableOptions) export.TableData {
	lang := opts.Language
	if lang == "" {
		lang = locale.Arabic
	}
	tb := s.TrialBalance(e, lang)

	columns := []export.Column{
		{Key: "code", Header: pick(lang, "رمز الحساب", "Account code"), Type: export.TypeText},
		{Key: "name", Header: pick(lang, "اسم الحساب", "Account name"), Type: export.TypeText},
		{Key: "level", Header: pick(lang, "المستوى", "Level"), Type: export.TypeNumber, Width: 8},
	}
	for _, b := range buckets {
		columns = append(columns, export.Column{Key: b.key, Header: pick(lang, b.ar, b.en), Type: export.TypeCurrency})
	}

	rows := make([]map[string]any, 0, len(tb.Rows))
	for _, r := range tb.Rows {
		amounts := r.Amounts
		if opts.OwnAmounts {
			amounts = r.Own
		}
		row := map[string]any{"code": r.Code, "name": r.Name, "level": r.Level}
		for _, b := range buckets {
			row[b.key] = b.pick(amounts)
		}
		rows = append(rows, row)
	}

	summary := map[string]any{"name": pick(lang, "الإجمالي", "Total")}
	for _, b := range buckets {
		summary[b.key] = b.pick(tb.Totals)
	}

	company := s.CompanyName
	if company == "" {
		company = s.Filter.OrgID
	}
	return export.TableData{
		Columns: columns,
		Rows:    rows,
		Summary: summary,
		Metadata: export.Metadata{PrependRows: [][]any{
			{pick(lang, "الشركة", "Company"), company},
			{pick(lang, "الفترة", "Period"), s.Filter.PeriodLabel(lang)},
			{pick(lang, "حالة الميزان", "Balance"), s.balanceLabel(lang)},
		}},
	}
}

func (s *Snapshot) balanceLabel(lang locale.Language) string {
	if s.Balance.Balanced {
		return pick(lang, "متوازن", "Balanced")
	}
	diff := s.Balance.Difference.StringFixed(2)
	return pick(lang, "غير متوازن، الفرق "+diff, "Out of balance by "+diff)
}

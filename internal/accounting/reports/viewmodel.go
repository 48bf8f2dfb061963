package reports

// TrialBalanceViewModel holds the data served for the all-levels trial balance.
type TrialBalanceViewModel struct {
	CompanyName string       `json:"company_name"`
	PeriodLabel string       `json:"period_label"`
	FilterOrg   string       `json:"filter_org"`
	FilterProj  string       `json:"filter_project,omitempty"`
	PostedOnly  bool         `json:"posted_only"`
	Expanded    []string     `json:"expanded"`
	Orphans     []string     `json:"orphans,omitempty"`
	Warnings    []string     `json:"warnings,omitempty"`
	Report      TrialBalance `json:"report"`
}

// StatementsViewModel holds profit & loss and balance sheet summaries.
type StatementsViewModel struct {
	CompanyName   string        `json:"company_name"`
	PeriodLabel   string        `json:"period_label"`
	ProfitAndLoss ProfitAndLoss `json:"profit_and_loss"`
	BalanceSheet  BalanceSheet  `json:"balance_sheet"`
}

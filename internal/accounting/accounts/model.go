package accounts

// Status enumerates chart of accounts lifecycle values.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Category values used to classify accounts for statements.
const (
	CategoryAsset     = "asset"
	CategoryLiability = "liability"
	CategoryEquity    = "equity"
	CategoryRevenue   = "revenue"
	CategoryExpense   = "expense"
)

// Account models a chart of accounts row as returned by the query layer.
type Account struct {
	ID            string  `json:"id"`
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	NameLocalized *string `json:"name_localized"`
	Level         int     `json:"level"`
	ParentID      *string `json:"parent_id"`
	Status        Status  `json:"status"`
	Category      *string `json:"category"`
}

// DisplayName returns the localized name when requested and available.
func (a Account) DisplayName(localized bool) string {
	if localized && a.NameLocalized != nil && *a.NameLocalized != "" {
		return *a.NameLocalized
	}
	return a.Name
}

package accounting

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceEpsilon is the tolerance used when comparing debit and credit totals.
var BalanceEpsilon = decimal.NewFromFloat(0.01)

// Amounts is the six-bucket aggregate attached to every account.
type Amounts struct {
	OpeningDebit  decimal.Decimal `json:"opening_debit"`
	OpeningCredit decimal.Decimal `json:"opening_credit"`
	PeriodDebits  decimal.Decimal `json:"period_debits"`
	PeriodCredits decimal.Decimal `json:"period_credits"`
	ClosingDebit  decimal.Decimal `json:"closing_debit"`
	ClosingCredit decimal.Decimal `json:"closing_credit"`
}

// Add returns the componentwise sum of a and b.
func (a Amounts) Add(b Amounts) Amounts {
	return Amounts{
		OpeningDebit:  a.OpeningDebit.Add(b.OpeningDebit),
		OpeningCredit: a.OpeningCredit.Add(b.OpeningCredit),
		PeriodDebits:  a.PeriodDebits.Add(b.PeriodDebits),
		PeriodCredits: a.PeriodCredits.Add(b.PeriodCredits),
		ClosingDebit:  a.ClosingDebit.Add(b.ClosingDebit),
		ClosingCredit: a.ClosingCredit.Add(b.ClosingCredit),
	}
}

// IsZero reports whether every bucket is zero.
func (a Amounts) IsZero() bool {
	return a.OpeningDebit.IsZero() && a.OpeningCredit.IsZero() &&
		a.PeriodDebits.IsZero() && a.PeriodCredits.IsZero() &&
		a.ClosingDebit.IsZero() && a.ClosingCredit.IsZero()
}

// Equal compares all six buckets by value.
func (a Amounts) Equal(b Amounts) bool {
	return a.OpeningDebit.Equal(b.OpeningDebit) &&
		a.OpeningCredit.Equal(b.OpeningCredit) &&
		a.PeriodDebits.Equal(b.PeriodDebits) &&
		a.PeriodCredits.Equal(b.PeriodCredits) &&
		a.ClosingDebit.Equal(b.ClosingDebit) &&
		a.ClosingCredit.Equal(b.ClosingCredit)
}

// ClosingNet returns closing debit minus closing credit.
func (a Amounts) ClosingNet() decimal.Decimal {
	return a.ClosingDebit.Sub(a.ClosingCredit)
}

// PeriodNet returns period debits minus period credits.
func (a Amounts) PeriodNet() decimal.Decimal {
	return a.PeriodDebits.Sub(a.PeriodCredits)
}

// SummaryFilter scopes the amount summary returned by the query layer.
type SummaryFilter struct {
	OrgID      string    `validate:"required"`
	ProjectID  string    `validate:"omitempty"`
	From       time.Time `validate:"required"`
	To         time.Time `validate:"required,gtefield=From"`
	PostedOnly bool
}

// ErrInvalidFilter indicates a summary filter that cannot be queried.
var ErrInvalidFilter = errors.New("accounting: invalid summary filter")

package accounting

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrTenantNotFound indicates the organization has no display record.
var ErrTenantNotFound = errors.New("accounting: organization not found")

// Repository reads ledger summaries through the database RPC functions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AccountSummary returns per-account amounts keyed by account id.
func (r *Repository) AccountSummary(ctx context.Context, filter SummaryFilter) (map[string]Amounts, error) {
	project := pgtype.Text{String: filter.ProjectID, Valid: filter.ProjectID != ""}
	rows, err := r.pool.Query(ctx, `SELECT account_id::text,
			opening_debit::text, opening_credit::text,
			period_debits::text, period_credits::text,
			closing_debit::text, closing_credit::text
		FROM get_gl_account_summary($1, $2, $3::date, $4::date, $5)`,
		filter.OrgID, project, filter.From, filter.To, filter.PostedOnly)
	if err != nil {
		return nil, fmt.Errorf("accounting: account summary: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Amounts)
	for rows.Next() {
		var (
			id  string
			raw [6]*string
		)
		if err := rows.Scan(&id, &raw[0], &raw[1], &raw[2], &raw[3], &raw[4], &raw[5]); err != nil {
			return nil, err
		}
		vals := make([]decimal.Decimal, len(raw))
		for i, s := range raw {
			vals[i] = parseAmount(s)
		}
		amt := Amounts{
			OpeningDebit:  vals[0],
			OpeningCredit: vals[1],
			PeriodDebits:  vals[2],
			PeriodCredits: vals[3],
			ClosingDebit:  vals[4],
			ClosingCredit: vals[5],
		}
		out[id] = out[id].Add(amt)
	}
	return out, rows.Err()
}

// TenantName returns the organization's display name.
func (r *Repository) TenantName(ctx context.Context, orgID string) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM organizations WHERE id::text = $1`, orgID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrTenantNotFound
		}
		return "", err
	}
	return name, nil
}

// parseAmount treats missing or malformed numerics as zero.
func parseAmount(s *string) decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

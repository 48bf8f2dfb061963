package accounts

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the chart of accounts.
type Repository interface {
	ListByOrg(ctx context.Context, orgID string) ([]Account, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a pgx-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const listByOrgSQL = `SELECT id::text, code, name, name_ar, level, parent_id::text, status, category
	FROM gl_accounts
	WHERE org_id::text = $1
	ORDER BY code`

func (r *repository) ListByOrg(ctx context.Context, orgID string) ([]Account, error) {
	rows, err := r.db.Query(ctx, listByOrgSQL, orgID)
	if err != nil {
		return nil, fmt.Errorf("accounts: list: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanAccount)
	if err != nil {
		return nil, fmt.Errorf("accounts: scan: %w", err)
	}
	return list, nil
}

func scanAccount(row pgx.CollectableRow) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.NameLocalized, &a.Level, &a.ParentID, &a.Status, &a.Category)
	// Level drives indentation only; a missing level renders as a root.
	a.Level = max(a.Level, 1)
	return a, err
}

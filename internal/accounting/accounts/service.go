package accounts

import (
	"context"
	"strings"
)

// Service lists accounts for report consumers.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the organization's chart of accounts, optionally without inactive rows.
func (s *Service) List(ctx context.Context, orgID string, activeOnly bool) ([]Account, error) {
	rows, err := s.repo.ListByOrg(ctx, strings.TrimSpace(orgID))
	if err != nil {
		return nil, err
	}
	if !activeOnly {
		return rows, nil
	}
	filtered := make([]Account, 0, len(rows))
	for _, row := range rows {
		if row.Status == StatusInactive {
			continue
		}
		filtered = append(filtered, row)
	}
	return filtered, nil
}

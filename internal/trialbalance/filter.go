package trialbalance

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-reports/internal/locale"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/httpx"
)

// DateLayout is the wire layout of filter dates.
const DateLayout = "2006-01-02"

var (
	// ErrInvalidFilter wraps filter validation failures.
	ErrInvalidFilter = fmt.Errorf("%w: %w", httpx.ErrValidation, accounting.ErrInvalidFilter)
	// ErrInvalidExpand is returned for an unparseable expansion spec.
	ErrInvalidExpand = fmt.Errorf("%w: invalid expand", httpx.ErrValidation)
)

// Filter selects the ledger slice a trial balance is built from.
type Filter struct {
	OrgID      string    `json:"org_id" validate:"required"`
	ProjectID  string    `json:"project_id,omitempty"`
	From       time.Time `json:"from" validate:"required"`
	To         time.Time `json:"to" validate:"required,gtefield=From"`
	PostedOnly bool      `json:"posted_only"`
	ActiveOnly bool      `json:"active_only"`
}

// ParseFilter reads a filter from wire values. Empty dates default to the
// start of the year of to, and to today.
func ParseFilter(orgID, projectID, from, to string, postedOnly, activeOnly bool, now time.Time) (Filter, error) {
	f := Filter{OrgID: orgID, ProjectID: projectID, PostedOnly: postedOnly, ActiveOnly: activeOnly}
	var err error
	if strings.TrimSpace(to) == "" {
		f.To = now.UTC()
	} else if f.To, err = time.Parse(DateLayout, strings.TrimSpace(to)); err != nil {
		return Filter{}, fmt.Errorf("%w: to: %v", ErrInvalidFilter, err)
	}
	if strings.TrimSpace(from) == "" {
		f.From = time.Date(f.To.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	} else if f.From, err = time.Parse(DateLayout, strings.TrimSpace(from)); err != nil {
		return Filter{}, fmt.Errorf("%w: from: %v", ErrInvalidFilter, err)
	}
	return f.normalized(), nil
}

// normalized trims ids and truncates dates to UTC days.
func (f Filter) normalized() Filter {
	f.OrgID = strings.TrimSpace(f.OrgID)
	f.ProjectID = strings.TrimSpace(f.ProjectID)
	f.From = day(f.From)
	f.To = day(f.To)
	return f
}

func day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Summary converts the filter into the query layer's summary filter.
func (f Filter) Summary() accounting.SummaryFilter {
	return accounting.SummaryFilter{
		OrgID:      f.OrgID,
		ProjectID:  f.ProjectID,
		From:       f.From,
		To:         f.To,
		PostedOnly: f.PostedOnly,
	}
}

// key identifies the filter for caching and load coalescing.
func (f Filter) key() []string {
	project := f.ProjectID
	if project == "" {
		project = "-"
	}
	return []string{
		"tb",
		f.OrgID,
		project,
		f.From.Format(DateLayout),
		f.To.Format(DateLayout),
		strconv.FormatBool(f.PostedOnly),
		strconv.FormatBool(f.ActiveOnly),
	}
}

// PeriodLabel renders the filter period for headers.
func (f Filter) PeriodLabel(lang locale.Language) string {
	from, to := f.From.Format(DateLayout), f.To.Format(DateLayout)
	if lang == locale.English {
		return fmt.Sprintf("From %s to %s", from, to)
	}
	return fmt.Sprintf("من %s إلى %s", from, to)
}

// ParseExpansion reads an expansion spec against forest:
// "" or "none", "all", "level:N", or "ids:a,b,c".
func ParseExpansion(spec string, forest *reports.Forest) (*reports.Expansion, error) {
	spec = strings.TrimSpace(spec)
	switch {
	case spec == "" || spec == "none":
		return reports.NewExpansion(), nil
	case spec == "all":
		e := reports.NewExpansion()
		e.ExpandAll(forest)
		return e, nil
	case strings.HasPrefix(spec, "level:"):
		n, err := strconv.Atoi(strings.TrimPrefix(spec, "level:"))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidExpand, spec)
		}
		e := reports.NewExpansion()
		e.ExpandToLevel(forest, n)
		return e, nil
	case strings.HasPrefix(spec, "ids:"):
		var ids []string
		for _, id := range strings.Split(strings.TrimPrefix(spec, "ids:"), ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		return reports.NewExpansion(ids...), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidExpand, spec)
}

// IsInvalid reports whether err is a caller mistake rather than a failure.
func IsInvalid(err error) bool {
	return errors.Is(err, httpx.ErrValidation)
}

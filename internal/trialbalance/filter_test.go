package trialbalance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-reports/internal/locale"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/httpx"
)

func TestParseFilterDefaults(t *testing.T) {
	f, err := ParseFilter(" org-1 ", "", "", "", true, false, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "org-1", f.OrgID)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), f.From)
	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), f.To)
	assert.True(t, f.PostedOnly)

	f, err = ParseFilter("org-1", "p-7", "2025-04-01", "2025-06-30", false, true, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "p-7", f.Summary().ProjectID)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), f.Summary().From)
	assert.True(t, f.ActiveOnly)
}

func TestParseFilterRejectsBadDates(t *testing.T) {
	for _, tc := range []struct{ from, to string }{
		{"2026-13-01", "2026-12-31"},
		{"2026-01-01", "31/12/2026"},
	} {
		_, err := ParseFilter("org-1", "", tc.from, tc.to, false, false, fixedNow)
		require.Error(t, err, tc)
		assert.ErrorIs(t, err, httpx.ErrValidation)
		assert.ErrorIs(t, err, ErrInvalidFilter)
	}
}

func TestFilterKeyDistinguishesFlags(t *testing.T) {
	a := testFilter()
	b := testFilter()
	b.PostedOnly = true
	assert.NotEqual(t, a.key(), b.key())
	assert.Equal(t, "-", a.key()[2])
	assert.Equal(t, "2026-01-01", a.key()[3])
}

func TestPeriodLabel(t *testing.T) {
	f := testFilter()
	assert.Equal(t, "From 2026-01-01 to 2026-09-30", f.PeriodLabel(locale.English))
	assert.Equal(t, "من 2026-01-01 إلى 2026-09-30", f.PeriodLabel(locale.Arabic))
}

func TestParseExpansion(t *testing.T) {
	forest := testSnapshot(t).Forest

	e, err := ParseExpansion("", forest)
	require.NoError(t, err)
	assert.Empty(t, e.IDs())

	e, err = ParseExpansion("all", forest)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a11", "a12", "a2", "a9"}, e.IDs())

	e, err = ParseExpansion("level:1", forest)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, e.IDs())

	e, err = ParseExpansion("ids: a1, ,a2", forest)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, e.IDs())

	for _, spec := range []string{"level:-1", "level:x", "some"} {
		_, err = ParseExpansion(spec, forest)
		assert.ErrorIs(t, err, ErrInvalidExpand, spec)
		assert.True(t, IsInvalid(err))
	}
}

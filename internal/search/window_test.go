package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyvia/flightcore/internal/domain"
)

func TestBuildWindow_SingleDate(t *testing.T) {
	w, err := BuildWindow("2026-03-20", "", "", false)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC), w.From)
	assert.Equal(t, time.Date(2026, 3, 20, 23, 59, 59, 0, time.UTC), w.To)
}

func TestBuildWindow_EuropeanDateFormat(t *testing.T) {
	w, err := BuildWindow("20.03.2026", "", "", false)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC), w.From)
}

func TestBuildWindow_Flexible(t *testing.T) {
	w, err := BuildWindow("2026-03-20", "", "", true)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC), w.From)
	assert.Equal(t, time.Date(2026, 3, 23, 23, 59, 59, 0, time.UTC), w.To)
}

func TestBuildWindow_Range(t *testing.T) {
	w, err := BuildWindow("", "2026-03-01", "2026-03-10", false)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), w.From)
	assert.Equal(t, time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC), w.To)
}

// Range takes precedence over a single date, and the flexible flag only
// widens single-date searches.
func TestBuildWindow_RangeWinsOverDate(t *testing.T) {
	w, err := BuildWindow("2026-05-01", "2026-03-01", "2026-03-05", true)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), w.From)
	assert.Equal(t, time.Date(2026, 3, 5, 23, 59, 59, 0, time.UTC), w.To)
}

func TestBuildWindow_Errors(t *testing.T) {
	testCases := []struct {
		name      string
		date      string
		startDate string
		endDate   string
	}{
		{name: "no dates at all"},
		{name: "garbage date", date: "not-a-date"},
		{name: "start after end", startDate: "2026-03-10", endDate: "2026-03-01"},
		{name: "range over 30 days", startDate: "2026-03-01", endDate: "2026-04-15"},
		{name: "garbage end date", startDate: "2026-03-01", endDate: "someday"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildWindow(tc.date, tc.startDate, tc.endDate, false)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestBuildWindow_ExactlyThirtyDays(t *testing.T) {
	_, err := BuildWindow("", "2026-03-01", "2026-03-30", false)
	assert.NoError(t, err)
}

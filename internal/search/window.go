package search

import (
	"fmt"
	"math"
	"time"

	"github.com/skyvia/flightcore/internal/domain"
)

// Window is the UTC departure interval a search covers.
type Window struct {
	From time.Time
	To   time.Time
}

const maxRangeDays = 30

// flexibleSpreadDays widens a single-date search to +-3 days.
const flexibleSpreadDays = 3

var dateLayouts = []string{"2006-01-02", "02.01.2006"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD or DD.MM.YYYY", domain.ErrInvalidInput, s)
}

func endOfDay(day time.Time) time.Time {
	return day.Add(24*time.Hour - time.Second)
}

// BuildWindow turns the client's date specification into a concrete UTC
// interval: exact day for a single date, +-3 days when flexible, explicit
// bounds for a range. A range longer than 30 days is rejected.
func BuildWindow(date, startDate, endDate string, flexible bool) (Window, error) {
	switch {
	case startDate != "" && endDate != "":
		start, err := parseDate(startDate)
		if err != nil {
			return Window{}, err
		}
		end, err := parseDate(endDate)
		if err != nil {
			return Window{}, err
		}
		if start.After(end) {
			return Window{}, fmt.Errorf("%w: start date must not be after end date", domain.ErrInvalidInput)
		}
		w := Window{From: start, To: endOfDay(end)}
		if days := int(math.Ceil(w.To.Sub(w.From).Hours() / 24)); days > maxRangeDays {
			return Window{}, fmt.Errorf("%w: date range cannot exceed %d days", domain.ErrInvalidInput, maxRangeDays)
		}
		return w, nil

	case date != "":
		day, err := parseDate(date)
		if err != nil {
			return Window{}, err
		}
		if flexible {
			return Window{
				From: day.AddDate(0, 0, -flexibleSpreadDays),
				To:   endOfDay(day.AddDate(0, 0, flexibleSpreadDays)),
			}, nil
		}
		return Window{From: day, To: endOfDay(day)}, nil

	default:
		return Window{}, fmt.Errorf("%w: date or start_date/end_date is required", domain.ErrInvalidInput)
	}
}

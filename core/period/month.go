// Package period resolves reporting months into half-open date ranges.
package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"commodity-pricing/internal/errors"
)

// Layout is the wire form of a year-month
const Layout = "2006-01"

// DateLayout is the storage form of a calendar date
const DateLayout = "2006-01-02"

// Month is a calendar month as the half-open range [Start, End)
type Month struct {
	Start time.Time
	End   time.Time
}

// ParseYearMonth parses "YYYY-MM" into a Month.
func ParseYearMonth(s string) (Month, error) {
	yearPart, monthPart, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Month{}, invalid(s)
	}
	year, err := strconv.Atoi(yearPart)
	if err != nil || year < 1 || year > 9999 {
		return Month{}, invalid(s)
	}
	month, err := strconv.Atoi(monthPart)
	if err != nil || month < 1 || month > 12 {
		return Month{}, invalid(s)
	}
	return MonthOf(time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)), nil
}

// MonthOf returns the month containing t
func MonthOf(t time.Time) Month {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Month{Start: start, End: start.AddDate(0, 1, 0)}
}

// String returns the year-month form
func (m Month) String() string {
	return m.Start.Format(Layout)
}

func invalid(s string) error {
	return errors.InvalidParam("Invalid year_month").WithContext("year_month", fmt.Sprintf("%q", s))
}

package models

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the canonical layout for calendar dates.
const DateLayout = "2006-01-02"

// NewDate creates a calendar date (midnight UTC).
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO-8601 calendar date.
func ParseDate(value string) (time.Time, error) {
	date, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, &ValidationError{
			Field:   "date",
			Value:   value,
			Message: "invalid date, expected YYYY-MM-DD",
		}
	}
	return date, nil
}

// FormatDate renders a calendar date using the canonical layout.
func FormatDate(date time.Time) string {
	return date.Format(DateLayout)
}

// DateRange is an inclusive [start, end] pair of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange creates a date range. The range is malformed when end precedes
// start; callers validate through Valid.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: start, End: end}
}

// Valid reports whether the range start does not come after the end.
func (r DateRange) Valid() bool {
	return !r.Start.After(r.End)
}

// IsOneDay reports whether the start and end dates are equal.
func (r DateRange) IsOneDay() bool {
	return r.Start.Equal(r.End)
}

// Covers reports whether the date falls within the inclusive range.
func (r DateRange) Covers(date time.Time) bool {
	return !date.Before(r.Start) && !date.After(r.End)
}

// Dates returns every date in the range in ascending order.
func (r DateRange) Dates() []time.Time {
	var dates []time.Time
	for date := r.Start; !date.After(r.End); date = date.AddDate(0, 0, 1) {
		dates = append(dates, date)
	}
	return dates
}

// String renders a one-day range as its single date and anything longer as
// "start to end".
func (r DateRange) String() string {
	if r.IsOneDay() {
		return FormatDate(r.Start)
	}
	return fmt.Sprintf("%s to %s", FormatDate(r.Start), FormatDate(r.End))
}

// DateRanges is a location's set of history dates collapsed into a minimal
// collection of contiguous ranges.
type DateRanges struct {
	Alias  string
	Ranges []DateRange
}

// CollapseDates sorts the dates and merges runs of consecutive days into
// single ranges. Duplicate dates collapse into their run.
func CollapseDates(alias string, dates []time.Time) DateRanges {
	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var ranges []DateRange
	for _, date := range sorted {
		if n := len(ranges); n > 0 {
			last := &ranges[n-1]
			if !date.After(last.End.AddDate(0, 0, 1)) {
				if date.After(last.End) {
					last.End = date
				}
				continue
			}
		}
		ranges = append(ranges, DateRange{Start: date, End: date})
	}
	return DateRanges{Alias: alias, Ranges: ranges}
}

// Covers reports whether any of the ranges contains the date.
func (dr DateRanges) Covers(date time.Time) bool {
	for _, r := range dr.Ranges {
		if r.Covers(date) {
			return true
		}
	}
	return false
}

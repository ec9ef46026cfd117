package utils

import (
	"fmt"
	"time"
)

const periodMonthLayout = "2006-01"

// PeriodMonth formats a time as the commission period it falls in (YYYY-MM).
func PeriodMonth(t time.Time) string {
	return t.Format(periodMonthLayout)
}

// PreviousPeriodMonth returns the period immediately before the given one.
// Malformed input falls back to the month before now.
func PreviousPeriodMonth(period string) string {
	t, err := time.Parse(periodMonthLayout, period)
	if err != nil {
		t = time.Now()
	}
	return t.AddDate(0, -1, 0).Format(periodMonthLayout)
}

// PeriodBounds returns the [start, end) window of a period month in UTC.
func PeriodBounds(period string) (time.Time, time.Time, error) {
	start, err := time.Parse(periodMonthLayout, period)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid period %q: %w", period, err)
	}
	return start, start.AddDate(0, 1, 0), nil
}

func FormatTimeISO(t time.Time) string {
	return t.Format(time.RFC3339)
}

func ParseTimeISO(timeStr string) (time.Time, error) {
	return time.Parse(time.RFC3339, timeStr)
}

func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

package usage

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseResetDate parses a strict YYYY-MM-DD date into UTC midnight.
//
// Month and day are range checked (1-12, 1-31) but not checked against the
// month length, so "2025-02-31" is accepted and time.Date normalizes it to
// 2025-03-03.
func ParseResetDate(raw string) (time.Time, error) {
	parts := strings.Split(raw, "-")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid reset date %q: expected 3 components (YYYY-MM-DD), got %d", raw, len(parts))
	}

	var nums [3]int
	for i, part := range parts {
		if part == "" || !isDigits(part) {
			return time.Time{}, fmt.Errorf("invalid reset date %q: component %q is not numeric", raw, part)
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid reset date %q: %w", raw, err)
		}
		nums[i] = n
	}

	year, month, day := nums[0], nums[1], nums[2]
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("invalid reset date %q: month %d out of range 1-12", raw, month)
	}
	if day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid reset date %q: day %d out of range 1-31", raw, day)
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CalculatePeriodDuration returns the length of the monthly billing period
// that ends at resetDate. The period starts on the same day one calendar
// month earlier, clamped to the last day of that month, at resetDate's time
// of day. The result is never negative.
func CalculatePeriodDuration(resetDate time.Time) time.Duration {
	reset := resetDate.UTC()
	firstOfMonth := time.Date(reset.Year(), reset.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastOfPrev := firstOfMonth.AddDate(0, 0, -1)

	day := min(reset.Day(), lastOfPrev.Day())
	start := time.Date(lastOfPrev.Year(), lastOfPrev.Month(), day,
		reset.Hour(), reset.Minute(), reset.Second(), reset.Nanosecond(), time.UTC)

	return max(reset.Sub(start), 0)
}

package prayer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock parses a "HH:MM" wall-clock string into minutes since
// midnight. This is the single time-parsing primitive shared by the
// calculator and the scheduler so rounding and edge behavior stay
// consistent. Minute-level precision only.
func ParseClock(s string) (int, error) {
	h, m, err := splitClock(s)
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

func splitClock(s string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minutes in %q", s)
	}
	return h, m, nil
}

// At places clock on day's calendar date in day's location.
// Seconds are always zero; times are parsed as plain integers with no
// timezone math, so the caller's clock must match the table's locale.
func At(day time.Time, clock string) (time.Time, error) {
	h, m, err := splitClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, day.Location()), nil
}

// RollForwardIfPast moves t one day forward when it is not strictly in
// the future relative to now. Both reminder and at-time scheduling share
// this single rollover branch.
func RollForwardIfPast(t, now time.Time) time.Time {
	if !t.After(now) {
		return t.AddDate(0, 0, 1)
	}
	return t
}

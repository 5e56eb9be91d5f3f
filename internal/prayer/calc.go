package prayer

import (
	"fmt"
	"time"
)

// Next identifies the upcoming prayer relative to some instant.
// Today is false when the day's prayers are all behind us and the answer
// wraps to tomorrow's Fajr.
type Next struct {
	Name  string
	Time  string // "HH:MM"
	Today bool
}

// NextPrayer walks the five prayers in daily order and returns the first
// whose wall-clock minute exceeds now's minute-of-day; once the day is
// exhausted it wraps to Fajr tomorrow. Malformed tables are rejected with
// ErrInvalidTable rather than silently skipped.
func NextPrayer(t Table, now time.Time) (Next, error) {
	if err := t.Validate(); err != nil {
		return Next{}, err
	}

	nowMin := now.Hour()*60 + now.Minute()
	for _, name := range Names() {
		clock := t.TimeOf(name)
		m, _ := ParseClock(clock) // validated above
		if m > nowMin {
			return Next{Name: name, Time: clock, Today: true}, nil
		}
	}
	return Next{Name: Fajr, Time: t.Fajr, Today: false}, nil
}

// MinutesUntil returns the whole minutes from now until clock on today's
// (or, when today is false, tomorrow's) date, floored and clamped at 0.
func MinutesUntil(clock string, today bool, now time.Time) (int, error) {
	target, err := At(now, clock)
	if err != nil {
		return 0, err
	}
	if !today {
		target = target.AddDate(0, 0, 1)
	}
	mins := int(target.Sub(now).Minutes())
	if mins < 0 {
		mins = 0
	}
	return mins, nil
}

// HasPassed reports whether clock's minute-of-day is strictly behind
// now's. Same-day comparison only; multi-day rollover is not considered.
func HasPassed(clock string, now time.Time) (bool, error) {
	m, err := ParseClock(clock)
	if err != nil {
		return false, err
	}
	nowMin := now.Hour()*60 + now.Minute()
	return nowMin > m, nil
}

// FormatRemaining renders a minute count as a compact countdown:
// "Now" under a minute, then "2h", "45m", or "1h 30m".
func FormatRemaining(totalMinutes int) string {
	if totalMinutes < 1 {
		return "Now"
	}
	h := totalMinutes / 60
	m := totalMinutes % 60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, m)
	}
}

// FormatTo12Hour converts "HH:MM" to "h:MM AM/PM" with the standard
// 12-hour wraparound: hour 0 maps to 12 AM, hour 12 stays 12 PM.
func FormatTo12Hour(clock string) (string, error) {
	h, m, err := splitClock(clock)
	if err != nil {
		return "", err
	}
	period := "AM"
	if h >= 12 {
		period = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, m, period), nil
}

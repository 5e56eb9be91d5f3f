package prayer

import (
	"errors"
	"fmt"
	"time"
)

// Canonical prayer names, in daily order. Sunrise is tracked for display
// but is not a prayer and never gets notifications.
const (
	Fajr    = "Fajr"
	Sunrise = "Sunrise"
	Dhuhr   = "Dhuhr"
	Asr     = "Asr"
	Maghrib = "Maghrib"
	Isha    = "Isha"
)

// Names lists the five prayers in fixed daily order.
func Names() []string {
	return []string{Fajr, Dhuhr, Asr, Maghrib, Isha}
}

var ErrInvalidTable = errors.New("invalid prayer time table")

// Table holds one calendar day's prayer times for a location.
//
// Times are provider-normalized "HH:MM" local wall-clock strings with the
// timezone already applied; no offset is stored. Hijri fields are opaque
// display strings.
type Table struct {
	Fajr    string `json:"fajr"`
	Sunrise string `json:"sunrise"`
	Dhuhr   string `json:"dhuhr"`
	Asr     string `json:"asr"`
	Maghrib string `json:"maghrib"`
	Isha    string `json:"isha"`

	Date       string `json:"date"`
	HijriDate  string `json:"hijri_date"`
	HijriMonth string `json:"hijri_month"`
	HijriYear  string `json:"hijri_year"`

	Location    string    `json:"location"`
	LastFetched time.Time `json:"last_fetched"`
}

// TimeOf returns the "HH:MM" value for a canonical prayer name,
// or "" for unknown names.
func (t Table) TimeOf(name string) string {
	switch name {
	case Fajr:
		return t.Fajr
	case Sunrise:
		return t.Sunrise
	case Dhuhr:
		return t.Dhuhr
	case Asr:
		return t.Asr
	case Maghrib:
		return t.Maghrib
	case Isha:
		return t.Isha
	}
	return ""
}

// Validate checks that all five prayers are present, parseable, and
// monotonically increasing within the day, and that Sunrise (when set)
// falls between Fajr and Dhuhr.
func (t Table) Validate() error {
	prev := -1
	prevName := ""
	for _, name := range Names() {
		raw := t.TimeOf(name)
		if raw == "" {
			return fmt.Errorf("%w: %s missing", ErrInvalidTable, name)
		}
		m, err := ParseClock(raw)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidTable, name, err)
		}
		if m <= prev {
			return fmt.Errorf("%w: %s (%s) not after %s", ErrInvalidTable, name, raw, prevName)
		}
		prev = m
		prevName = name
	}

	if t.Sunrise != "" {
		sr, err := ParseClock(t.Sunrise)
		if err != nil {
			return fmt.Errorf("%w: Sunrise: %v", ErrInvalidTable, err)
		}
		fajr, _ := ParseClock(t.Fajr)
		dhuhr, _ := ParseClock(t.Dhuhr)
		if sr <= fajr || sr >= dhuhr {
			return fmt.Errorf("%w: Sunrise (%s) outside Fajr..Dhuhr", ErrInvalidTable, t.Sunrise)
		}
	}
	return nil
}

// FreshFor reports whether the table was fetched on the same local
// calendar day as now. A table from an earlier day is stale; deciding
// whether to still use it as a last resort is the caller's call.
func (t Table) FreshFor(now time.Time) bool {
	if t.LastFetched.IsZero() {
		return false
	}
	fy, fm, fd := t.LastFetched.Local().Date()
	ny, nm, nd := now.Local().Date()
	return fy == ny && fm == nm && fd == nd
}

package schedule

import (
	"context"

	"prayerd/internal/prayer"
)

// Options selects what gets armed for a day's table.
//
// Zero values follow the same convention as the retry knobs:
//   - Prayers nil means all five
//   - MinutesBefore 0 means the default (10); negative disables the
//     before-prayer reminder entirely
//   - AtTime nil means true
type Options struct {
	Prayers       []string
	MinutesBefore int
	AtTime        *bool
}

func (o Options) withDefaults() Options {
	if len(o.Prayers) == 0 {
		o.Prayers = prayer.Names()
	}
	if o.MinutesBefore == 0 {
		o.MinutesBefore = 10
	}
	if o.AtTime == nil {
		t := true
		o.AtTime = &t
	}
	return o
}

func (o Options) atTime() bool { return o.AtTime != nil && *o.AtTime }

func (o Options) wantsPrayer(name string) bool {
	for _, p := range o.Prayers {
		if p == name {
			return true
		}
	}
	return false
}

// RefreshFunc produces a fresh prayer-time table, typically the
// retry-wrapped provider fetch.
type RefreshFunc func(ctx context.Context) (prayer.Table, error)

// dayFormat is the calendar-date marker layout (device-local date).
const dayFormat = "2006-01-02"

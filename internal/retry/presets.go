package retry

import "time"

// Named presets for common retry profiles. Returned by value so callers
// can tweak a copy without affecting anyone else.

// Fast gives up quickly; use for interactive paths.
func Fast() Options {
	return Options{
		MaxRetries:    2,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2,
	}
}

// Standard is the general-purpose profile and matches the package defaults.
func Standard() Options {
	return Options{
		MaxRetries:    3,
		InitialDelay:  1 * time.Second,
		MaxDelay:      15 * time.Second,
		BackoffFactor: 2,
	}
}

// Persistent tolerates longer outages, e.g. the daily provider fetch.
func Persistent() Options {
	return Options{
		MaxRetries:    5,
		InitialDelay:  1 * time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2,
	}
}

// Patient is for background work that must eventually succeed.
func Patient() Options {
	return Options{
		MaxRetries:    10,
		InitialDelay:  2 * time.Second,
		MaxDelay:      120 * time.Second,
		BackoffFactor: 1.5,
	}
}

package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// Options controls one retryable operation.
//
// All fields are optional; zero values fall back to the Standard preset
// defaults (3 retries, 1s initial delay, 30s cap, 2x backoff).
type Options struct {
	// MaxRetries is the number of retries after the first attempt,
	// so an operation runs at most MaxRetries+1 times.
	//
	// Zero applies the default (3). Negative disables retries entirely,
	// mirroring how other knobs in this repo distinguish "omitted" from
	// an explicit off.
	MaxRetries int

	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64

	// RetryableStatusCodes lists HTTP status codes worth retrying.
	// Empty means the default transient set (408, 429, 500, 502, 503, 504).
	RetryableStatusCodes []int

	// OnRetry is invoked before each retry sleep with the 1-based attempt
	// number that just failed, the error, and the chosen delay.
	// Diagnostics only: it must not affect control flow, and panics inside
	// it are swallowed.
	OnRetry func(attempt int, err error, delay time.Duration)
}

const (
	defaultMaxRetries    = 3
	defaultInitialDelay  = 1 * time.Second
	defaultMaxDelay      = 30 * time.Second
	defaultBackoffFactor = 2.0
)

func defaultStatusCodes() []int {
	return []int{408, 429, 500, 502, 503, 504}
}

func (o Options) withDefaults() Options {
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = defaultMaxRetries
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = defaultInitialDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = defaultMaxDelay
	}
	if o.BackoffFactor <= 1 {
		o.BackoffFactor = defaultBackoffFactor
	}
	if len(o.RetryableStatusCodes) == 0 {
		o.RetryableStatusCodes = defaultStatusCodes()
	}
	return o
}

// Permanent marks an error as non-retryable.
//
// Operations can wrap validation errors or other permanent failures so Do
// fails fast instead of burning attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err is wrapped with Permanent.
func IsPermanent(err error) bool {
	var e permanentError
	return errors.As(err, &e)
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return fmt.Sprintf("permanent: %v", e.err) }
func (e permanentError) Unwrap() error { return e.err }

// Message fragments that indicate a transient network failure when the
// error carries no HTTP status. Matched case-insensitively as substrings.
var transientPatterns = []string{
	"network request failed",
	"network error",
	"timeout",
	"econnreset",
	"econnrefused",
	"enotfound",
	"socket hang up",
}

// retryable classifies err against the configured status-code set and the
// transient network patterns. Errors marked Permanent and context
// cancellations are always fatal.
func retryable(err error, o Options) bool {
	if err == nil {
		return false
	}
	if IsPermanent(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var he *HTTPError
	if errors.As(err, &he) {
		for _, c := range o.RetryableStatusCodes {
			if he.StatusCode == c {
				return true
			}
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// backoffDelay computes the sleep before retrying after the given 0-based
// attempt: min(MaxDelay, InitialDelay * BackoffFactor^attempt * jitter),
// jitter uniform in [0.5, 1.5).
func backoffDelay(o Options, attempt int, rng *rand.Rand) time.Duration {
	d := float64(o.InitialDelay) * math.Pow(o.BackoffFactor, float64(attempt))
	d *= 0.5 + rng.Float64()
	if d > float64(o.MaxDelay) {
		d = float64(o.MaxDelay)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Do runs op, retrying transient failures with exponential, jittered
// backoff. Each call is independent; there is no shared state between
// calls. The last observed error is returned once retries are exhausted,
// non-retryable errors are returned immediately, and a cancelled context
// aborts the sleep between attempts.
func Do[T any](ctx context.Context, op func(context.Context) (T, error), opts Options) (T, error) {
	o := opts.withDefaults()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var zero T
	var lastErr error
	for attempt := 0; attempt <= o.MaxRetries; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		var pe permanentError
		if errors.As(err, &pe) {
			return zero, pe.err
		}
		if !retryable(err, o) {
			return zero, err
		}
		if attempt == o.MaxRetries {
			break
		}

		delay := backoffDelay(o, attempt, rng)
		notifyRetry(o, attempt+1, err, delay)

		tmr := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			if !tmr.Stop() {
				<-tmr.C
			}
			return zero, ctx.Err()
		case <-tmr.C:
		}
	}
	return zero, lastErr
}

func notifyRetry(o Options, attempt int, err error, delay time.Duration) {
	if o.OnRetry == nil {
		return
	}
	// Observer only; a panicking callback must not break the retry loop.
	defer func() { _ = recover() }()
	o.OnRetry(attempt, err, delay)
}

// Wrap converts op into a retry-enabled function with fixed options,
// usable as a drop-in replacement for the original.
func Wrap[T any](op func(context.Context) (T, error), opts Options) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return Do(ctx, op, opts)
	}
}

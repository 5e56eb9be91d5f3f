package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"
)

func fastOpts(maxRetries int) Options {
	return Options{
		MaxRetries:    maxRetries,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func TestDoRetriesUntilExhausted(t *testing.T) {
	t.Parallel()
	calls := 0
	wantErr := errors.New("network error: connection dropped")
	_, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, wantErr
	}, fastOpts(3))

	if calls != 4 {
		t.Fatalf("calls = %d, want maxRetries+1 = 4", calls)
	}
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want last observed error", err)
	}
}

func TestDoFatalShortCircuit(t *testing.T) {
	t.Parallel()
	calls := 0
	_, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, &HTTPError{StatusCode: 404, Status: "404 Not Found", URL: "http://x"}
	}, fastOpts(5))

	if calls != 1 {
		t.Fatalf("calls = %d, want 1 for non-retryable error", calls)
	}
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != 404 {
		t.Fatalf("err = %v, want HTTPError 404", err)
	}
}

func TestDoSucceedsAfterTransientFailure(t *testing.T) {
	t.Parallel()
	calls := 0
	v, err := Do(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("timeout waiting for headers")
		}
		return "ok", nil
	}, fastOpts(5))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" || calls != 3 {
		t.Fatalf("v=%q calls=%d, want ok after 3 calls", v, calls)
	}
}

func TestDoPermanentUnwrapsAndStops(t *testing.T) {
	t.Parallel()
	calls := 0
	inner := errors.New("bad input")
	_, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, Permanent(inner)
	}, fastOpts(5))

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, inner) || IsPermanent(err) {
		t.Fatalf("err = %v, want unwrapped inner error", err)
	}
}

func TestDoNegativeMaxRetriesDisables(t *testing.T) {
	t.Parallel()
	calls := 0
	_, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("econnreset")
	}, Options{MaxRetries: -1})

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDoContextCancelAbortsSleep(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := Do(ctx, func(context.Context) (int, error) {
		return 0, errors.New("network error")
	}, Options{MaxRetries: 3, InitialDelay: 10 * time.Second, MaxDelay: 10 * time.Second, BackoffFactor: 2})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if took := time.Since(start); took > time.Second {
		t.Fatalf("cancel took %v, sleep was not aborted", took)
	}
}

func TestOnRetryObservesAttempts(t *testing.T) {
	t.Parallel()
	var attempts []int
	opts := fastOpts(2)
	opts.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
		if err == nil {
			t.Error("OnRetry called with nil error")
		}
		if delay < 0 {
			t.Errorf("negative delay %v", delay)
		}
		panic("observer panic must not break the loop")
	}

	calls := 0
	_, _ = Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("socket hang up")
	}, opts)

	if calls != 3 {
		t.Fatalf("calls = %d, want 3 despite panicking observer", calls)
	}
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Fatalf("attempts = %v, want [1 2]", attempts)
	}
}

func TestWrapProducesRetryingFunc(t *testing.T) {
	t.Parallel()
	calls := 0
	fn := Wrap(func(context.Context) (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("enotfound")
		}
		return 42, nil
	}, fastOpts(3))

	v, err := fn(context.Background())
	if err != nil || v != 42 {
		t.Fatalf("got (%d, %v), want (42, nil)", v, err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestRetryableClassification(t *testing.T) {
	t.Parallel()
	opts := Options{RetryableStatusCodes: []int{429, 503}}.withDefaults()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "network request failed", err: errors.New("Network request failed"), want: true},
		{name: "timeout", err: errors.New("dial tcp: i/o timeout"), want: true},
		{name: "econnrefused", err: errors.New("connect: ECONNREFUSED"), want: true},
		{name: "enotfound", err: errors.New("lookup host: ENOTFOUND"), want: true},
		{name: "socket hang up", err: errors.New("socket hang up"), want: true},
		{name: "plain failure", err: errors.New("boom"), want: false},
		{name: "http 503", err: &HTTPError{StatusCode: 503}, want: true},
		{name: "http 429", err: &HTTPError{StatusCode: 429}, want: true},
		{name: "http 500 outside custom set", err: &HTTPError{StatusCode: 500}, want: false},
		{name: "http 404", err: &HTTPError{StatusCode: 404}, want: false},
		{name: "permanent transient message", err: Permanent(errors.New("timeout")), want: false},
		{name: "context canceled", err: context.Canceled, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := retryable(tt.err, opts); got != tt.want {
				t.Fatalf("retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestBackoffDelayJitterBounds(t *testing.T) {
	t.Parallel()
	o := Options{
		MaxRetries:    5,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Hour,
		BackoffFactor: 2,
	}.withDefaults()
	rng := rand.New(rand.NewSource(1))

	for attempt := 0; attempt < 4; attempt++ {
		expected := float64(o.InitialDelay) * math.Pow(o.BackoffFactor, float64(attempt))
		lo := time.Duration(0.5 * expected)
		hi := time.Duration(1.5 * expected)
		for trial := 0; trial < 1000; trial++ {
			d := backoffDelay(o, attempt, rng)
			if d < lo || d > hi {
				t.Fatalf("attempt %d trial %d: delay %v outside [%v, %v]", attempt, trial, d, lo, hi)
			}
		}
	}
}

func TestBackoffDelayCapped(t *testing.T) {
	t.Parallel()
	o := Options{
		InitialDelay:  time.Second,
		MaxDelay:      3 * time.Second,
		BackoffFactor: 2,
	}.withDefaults()
	rng := rand.New(rand.NewSource(2))

	for trial := 0; trial < 1000; trial++ {
		if d := backoffDelay(o, 10, rng); d != o.MaxDelay {
			t.Fatalf("delay %v, want cap %v for large attempt", d, o.MaxDelay)
		}
	}
}

func TestPresetValues(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		opts    Options
		retries int
		initial time.Duration
		maxD    time.Duration
		factor  float64
	}{
		{"fast", Fast(), 2, 500 * time.Millisecond, 5 * time.Second, 2},
		{"standard", Standard(), 3, time.Second, 15 * time.Second, 2},
		{"persistent", Persistent(), 5, time.Second, 60 * time.Second, 2},
		{"patient", Patient(), 10, 2 * time.Second, 120 * time.Second, 1.5},
	}
	for _, tt := range tests {
		if tt.opts.MaxRetries != tt.retries || tt.opts.InitialDelay != tt.initial ||
			tt.opts.MaxDelay != tt.maxD || tt.opts.BackoffFactor != tt.factor {
			t.Fatalf("%s preset = %+v", tt.name, tt.opts)
		}
	}
}

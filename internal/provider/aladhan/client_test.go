package aladhan

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"prayerd/internal/prayer"
	"prayerd/internal/retry"
	"prayerd/internal/storage"
	"prayerd/pkg/logx"
)

func testBody() string {
	return `{
		"code": 200,
		"status": "OK",
		"data": {
			"timings": {
				"Fajr": "04:50 (BST)",
				"Sunrise": "06:20 (BST)",
				"Dhuhr": "13:05 (BST)",
				"Asr": "16:40 (BST)",
				"Maghrib": "19:45 (BST)",
				"Isha": "21:10 (BST)"
			},
			"date": {
				"readable": "10 Mar 2026",
				"hijri": {
					"date": "21-09-1447",
					"day": "21",
					"month": {"number": 9, "en": "Ramadan", "ar": "رمضان"},
					"year": "1447"
				}
			},
			"meta": {"latitude": 51.5074, "longitude": -0.1278, "timezone": "Europe/London"}
		}
	}`
}

func fastRetry() retry.Options {
	return retry.Options{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func newTestClient(t *testing.T, baseURL string, store storage.Store) *Client {
	t.Helper()
	c, err := New(Config{
		BaseURL:   baseURL,
		Latitude:  51.5074,
		Longitude: -0.1278,
		Method:    3,
		Location:  "London",
		Retry:     fastRetry(),
	}, store, logx.Nop(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.now = func() time.Time {
		return time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	}
	return c
}

func TestTimingsParsesAndCaches(t *testing.T) {
	t.Parallel()

	var gotPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path + "?" + r.URL.RawQuery)
		fmt.Fprint(w, testBody())
	}))
	defer srv.Close()

	store := storage.NewMemory()
	c := newTestClient(t, srv.URL, store)

	tab, err := c.Timings(context.Background())
	if err != nil {
		t.Fatalf("Timings: %v", err)
	}
	if tab.Fajr != "04:50" || tab.Isha != "21:10" {
		t.Fatalf("timezone suffix not stripped: Fajr=%q Isha=%q", tab.Fajr, tab.Isha)
	}
	if tab.HijriMonth != "Ramadan" || tab.HijriYear != "1447" {
		t.Fatalf("hijri fields = %q %q", tab.HijriMonth, tab.HijriYear)
	}
	if tab.Location != "London" {
		t.Fatalf("location = %q", tab.Location)
	}
	if tab.LastFetched.IsZero() {
		t.Fatal("LastFetched not set")
	}

	path, _ := gotPath.Load().(string)
	want := "/timings/10-3-2026"
	if got := path; len(got) < len(want) || got[:len(want)] != want {
		t.Fatalf("request path = %q, want prefix %q", got, want)
	}

	cached, ok, err := store.GetTable(context.Background())
	if err != nil || !ok {
		t.Fatalf("table not cached: ok=%v err=%v", ok, err)
	}
	if cached.Fajr != tab.Fajr {
		t.Fatalf("cached Fajr = %q, want %q", cached.Fajr, tab.Fajr)
	}
}

func TestTimingsFallsBackToFreshCache(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := storage.NewMemory()
	c := newTestClient(t, srv.URL, store)

	seed := validTable()
	seed.LastFetched = c.now() // fetched today
	if err := store.PutTable(context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tab, err := c.Timings(context.Background())
	if err != nil {
		t.Fatalf("expected cached fallback, got error: %v", err)
	}
	if tab.Fajr != seed.Fajr {
		t.Fatalf("got Fajr %q, want cached %q", tab.Fajr, seed.Fajr)
	}
	if !c.CacheValid(context.Background()) {
		t.Fatal("CacheValid = false for a table fetched today")
	}
}

func TestTimingsStaleCacheStillReturned(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := storage.NewMemory()
	c := newTestClient(t, srv.URL, store)

	seed := validTable()
	seed.LastFetched = c.now().AddDate(0, 0, -1) // yesterday
	if err := store.PutTable(context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tab, err := c.Timings(context.Background())
	if err != nil {
		t.Fatalf("stale cache should still be returned: %v", err)
	}
	if tab.FreshFor(c.now()) {
		t.Fatal("yesterday's table reported as fresh")
	}
	if c.CacheValid(context.Background()) {
		t.Fatal("CacheValid = true for yesterday's table")
	}
}

func TestTimingsNoCachePropagatesError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, storage.NewMemory())

	_, err := c.Timings(context.Background())
	if err == nil {
		t.Fatal("expected error with empty cache")
	}
	var herr *retry.HTTPError
	if !errors.As(err, &herr) || herr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("error = %v, want wrapped 503", err)
	}
}

func TestTimingsEnvelopeCodeChecked(t *testing.T) {
	t.Parallel()

	// Transport-level 200 with an error code inside the envelope.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code": 400, "status": "Bad Request", "data": {}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)

	_, err := c.Timings(context.Background())
	if err == nil {
		t.Fatal("expected envelope code error")
	}
}

func TestTimingsRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, testBody())
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, storage.NewMemory())

	tab, err := c.Timings(context.Background())
	if err != nil {
		t.Fatalf("Timings after retries: %v", err)
	}
	if tab.Dhuhr != "13:05" {
		t.Fatalf("Dhuhr = %q", tab.Dhuhr)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("server saw %d calls, want 3", got)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
	}{
		{"method too high", Config{Latitude: 1, Longitude: 1, Method: 16}},
		{"method negative", Config{Latitude: 1, Longitude: 1, Method: -1}},
		{"latitude out of range", Config{Latitude: 91, Longitude: 0, Method: 2}},
		{"longitude out of range", Config{Latitude: 0, Longitude: 181, Method: 2}},
	}
	for _, tc := range cases {
		if _, err := New(tc.cfg, nil, logx.Nop(), nil); err == nil {
			t.Errorf("%s: New accepted invalid config", tc.name)
		}
	}
}

func validTable() prayer.Table {
	return prayer.Table{
		Fajr: "05:00", Sunrise: "06:30", Dhuhr: "12:30",
		Asr: "15:30", Maghrib: "18:10", Isha: "19:30",
		Date: "9 Mar 2026", Location: "London",
	}
}

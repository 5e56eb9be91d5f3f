package retry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestFetchRetriesServerErrors(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resp, err := Fetch(context.Background(), srv.Client(), srv.URL, fastOpts(4))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if n := hits.Load(); n != 3 {
		t.Fatalf("server hits = %d, want 3", n)
	}
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.Client(), srv.URL, fastOpts(4))
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v, want HTTPError 404", err)
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("server hits = %d, want 1", n)
	}
}

func TestFetchJSONDecodes(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":200,"status":"OK"}`))
	}))
	defer srv.Close()

	type envelope struct {
		Code   int    `json:"code"`
		Status string `json:"status"`
	}
	v, err := FetchJSON[envelope](context.Background(), srv.Client(), srv.URL, fastOpts(2))
	if err != nil {
		t.Fatalf("FetchJSON: %v", err)
	}
	if v.Code != 200 || v.Status != "OK" {
		t.Fatalf("decoded %+v", v)
	}
}

func TestFetchJSONMalformedBodyIsPermanent(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	type envelope struct{}
	_, err := FetchJSON[envelope](context.Background(), srv.Client(), srv.URL, fastOpts(3))
	if err == nil {
		t.Fatal("expected decode error")
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("server hits = %d, want 1 (decode must not be retried)", n)
	}
}

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"prayerd/internal/prayer"
	logx "prayerd/pkg/logx"
)

func openTestStore(t *testing.T, path string) Store {
	t.Helper()
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return st
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q): %v", driver, err)
		}
		if st != nil {
			t.Fatalf("Open(%q) = %v, want nil store", driver, st)
		}
	}
}

func TestFileStoreSlotsRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	st := openTestStore(t, path)

	tbl := prayer.Table{
		Fajr: "05:00", Sunrise: "06:30", Dhuhr: "12:00", Asr: "15:30",
		Maghrib: "18:00", Isha: "19:30",
		Date: "10 Mar 2026", Location: "41.88, -87.63",
		LastFetched: time.Date(2026, time.March, 10, 6, 1, 0, 0, time.UTC),
	}
	if err := st.PutTable(ctx, tbl); err != nil {
		t.Fatalf("PutTable: %v", err)
	}
	if err := st.PutHandles(ctx, []string{"h1", "h2", "h3"}); err != nil {
		t.Fatalf("PutHandles: %v", err)
	}
	if err := st.PutMidnightHandle(ctx, "mid-1"); err != nil {
		t.Fatalf("PutMidnightHandle: %v", err)
	}
	if err := st.PutLastScheduled(ctx, "2026-03-10"); err != nil {
		t.Fatalf("PutLastScheduled: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Everything must survive a reopen.
	st = openTestStore(t, path)
	defer st.Close()

	got, ok, err := st.GetTable(ctx)
	if err != nil || !ok {
		t.Fatalf("GetTable: ok=%v err=%v", ok, err)
	}
	if got.Fajr != tbl.Fajr || got.Isha != tbl.Isha || !got.LastFetched.Equal(tbl.LastFetched) {
		t.Fatalf("GetTable = %+v", got)
	}

	hs, err := st.GetHandles(ctx)
	if err != nil || len(hs) != 3 || hs[0] != "h1" {
		t.Fatalf("GetHandles = %v, %v", hs, err)
	}

	mid, err := st.GetMidnightHandle(ctx)
	if err != nil || mid != "mid-1" {
		t.Fatalf("GetMidnightHandle = %q, %v", mid, err)
	}

	day, err := st.GetLastScheduled(ctx)
	if err != nil || day != "2026-03-10" {
		t.Fatalf("GetLastScheduled = %q, %v", day, err)
	}
}

func TestFileStoreAbsentSlots(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openTestStore(t, filepath.Join(t.TempDir(), "state.json"))
	defer st.Close()

	if _, ok, err := st.GetTable(ctx); ok || err != nil {
		t.Fatalf("GetTable on empty store: ok=%v err=%v", ok, err)
	}
	if hs, err := st.GetHandles(ctx); len(hs) != 0 || err != nil {
		t.Fatalf("GetHandles on empty store: %v, %v", hs, err)
	}
	if day, err := st.GetLastScheduled(ctx); day != "" || err != nil {
		t.Fatalf("GetLastScheduled on empty store: %q, %v", day, err)
	}
}

func TestFileStoreClearHandles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openTestStore(t, filepath.Join(t.TempDir(), "state.json"))
	defer st.Close()

	if err := st.PutHandles(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("PutHandles: %v", err)
	}
	if err := st.PutHandles(ctx, nil); err != nil {
		t.Fatalf("PutHandles(nil): %v", err)
	}
	if hs, err := st.GetHandles(ctx); len(hs) != 0 || err != nil {
		t.Fatalf("handles not cleared: %v, %v", hs, err)
	}
}

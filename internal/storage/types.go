package storage

import (
	"context"
	"errors"
	"time"

	"prayerd/internal/prayer"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free JSON snapshot
//   - "sqlite": SQLite database file (optional build tag)
//   - "redis": shared Redis instance
//
// If Driver is empty or "none", storage is disabled and the scheduler
// keeps its bookkeeping for the current session only.
type Config struct {
	Driver      string
	Path        string        // file/sqlite
	BusyTimeout time.Duration // sqlite only; 0 means default

	// redis only
	Addr     string
	Username string
	Password string
	DB       int
}

// Store persists the scheduler's bookkeeping: the cached prayer-time
// table, the armed notification-handle list, the midnight-trigger
// handle, and the "last scheduled" calendar-date marker.
//
// Get methods report absence as (zero, false, nil) / empty, never as an
// error.
type Store interface {
	PutTable(ctx context.Context, t prayer.Table) error
	GetTable(ctx context.Context) (prayer.Table, bool, error)

	PutHandles(ctx context.Context, handles []string) error
	GetHandles(ctx context.Context) ([]string, error)

	PutMidnightHandle(ctx context.Context, handle string) error
	GetMidnightHandle(ctx context.Context) (string, error)

	PutLastScheduled(ctx context.Context, day string) error
	GetLastScheduled(ctx context.Context) (string, error)

	Close() error
}

// Slot keys shared by every driver.
const (
	keyTable         = "prayer_table"
	keyHandles       = "notification_handles"
	keyMidnight      = "midnight_handle"
	keyLastScheduled = "last_scheduled"
)

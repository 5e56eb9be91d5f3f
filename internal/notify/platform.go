package notify

import (
	"context"
	"time"
)

// Notification is one armed local notification: a title/body pair that
// fires at a wall-clock instant.
type Notification struct {
	Title  string
	Body   string
	FireAt time.Time
}

// Platform is the local notification store: arm by fire time, cancel by
// handle, introspect what is armed. Handles are opaque identifiers.
//
// Implementations must make Cancel of an unknown handle a no-op rather
// than an error so best-effort cleanup loops stay simple.
type Platform interface {
	// RequestPermission reports whether the platform may deliver.
	// Implementations prompt (or probe) on first call; an error means
	// the answer could not be determined and callers treat it as false.
	RequestPermission(ctx context.Context) (bool, error)

	Schedule(ctx context.Context, n Notification) (handle string, err error)
	Cancel(ctx context.Context, handle string) error

	// Scheduled lists currently armed handles. Diagnostics only.
	Scheduled(ctx context.Context) ([]string, error)
}

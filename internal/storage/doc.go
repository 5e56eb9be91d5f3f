// Package storage persists the scheduler's small bookkeeping state.
//
// It currently holds four slots:
//   - the cached daily prayer-time table
//   - the armed notification-handle list
//   - the midnight-trigger handle
//   - the "last scheduled" calendar-date marker
package storage

// Package aladhan fetches daily prayer-time tables from the Al Adhan
// HTTP API. Fetches are rate limited and retried; when the network is
// unavailable the last cached table is served instead, so a flaky
// connection degrades to yesterday's times rather than to nothing.
package aladhan

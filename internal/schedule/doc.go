// Package schedule keeps one self-renewing set of prayer notifications
// armed: it replaces the set whenever a fresh table arrives, and a daily
// 00:05 trigger refreshes everything for the new day without the process
// needing any external kick.
package schedule

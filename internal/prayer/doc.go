// Package prayer holds the daily prayer-time table and pure, stateless
// calculations over it: next-prayer lookup, countdowns, and clock
// formatting. No I/O; the current time is always an explicit argument.
package prayer

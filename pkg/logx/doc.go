// Package logx wraps zerolog behind a small structured-logging API.
//
// It provides a live root logger whose sinks and level can be swapped at
// runtime (console and/or file), derived loggers with fixed fields, and a
// safe no-op zero value so components never need nil checks.
package logx

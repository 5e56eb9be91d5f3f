// Package retry executes operations with exponential, jittered backoff.
//
// Errors are classified as transient (known network failure messages, or
// HTTP statuses from a configurable set) or fatal; fatal errors short-
// circuit immediately. Each Do call is self-contained: no shared state,
// no cross-call coordination.
package retry

// Package audit relays authentication audit events to a sink without blocking the
// request path.
//
// The [Dispatcher] owns a buffered channel and one delivery goroutine. When the
// buffer is full it either drops the event and counts it, or blocks the caller
// until space frees up or the caller's context ends.
//
// # What this package must NOT do
//
//   - Decide which events to emit; the engine does that.
//   - Import the root dualauth package.
package audit

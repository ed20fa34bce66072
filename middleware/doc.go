// Package middleware adapts HTTP requests to dualauth.Engine calls.
//
// # Middleware
//
//   - [RequireHeaders] rejects requests missing x-caller, x-correlationid or
//     x-authscheme and stores caller and correlation id in the context.
//   - [Guard] reads the scheme header, the bearer token and the session_id
//     cookie, calls Engine.Authorize and stores the [dualauth.Identity].
//
// [WriteError] and [StatusFor] are the only place an error kind becomes an
// HTTP status.
//
// # What this package must NOT do
//
//   - Parse or sign tokens (delegates to the engine).
//   - Touch the session store directly.
package middleware

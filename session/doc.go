// Package session holds server-side session state for the cookie authentication
// scheme.
//
// A [Store] maps an opaque session identifier to a [Session]. Expiry is lazy: an
// expired record stays in the store and every read reports it as expired until it
// is deleted or overwritten. Nothing sweeps in the background.
//
// Two stores are provided. [MemoryStore] is an in-process map and is the default;
// its contents are lost on restart. [RedisStore] shares sessions between processes
// and keeps the same read and delete semantics, storing records in the compact
// binary format produced by [Encode].
//
// # What this package must NOT do
//
//   - Generate session identifiers (callers supply fresh random values).
//   - Evaluate roles or any other authorization policy.
//   - Import the root dualauth package.
package session

// Package autherr defines the error taxonomy shared by every dualauth component.
//
// Each error carries a [Kind], a user-visible message and, optionally, a wrapped
// diagnostic cause. The message is safe to return to callers; the cause is only
// ever logged.
//
// # What this package must NOT do
//
//   - Map kinds to transport status codes (see the middleware package).
//   - Put cause text into the public message.
package autherr

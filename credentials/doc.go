// Package credentials provides the read-only credential lookup used during
// authentication. Records are keyed by username and carry the stored password
// hash, the stable user identifier and the user's single role.
package credentials

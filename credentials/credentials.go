package credentials

import (
	"context"
	"errors"
)

// Roles understood by the demo seed and the protected route.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// ErrNotFound is returned when no record exists for a username.
var ErrNotFound = errors.New("credential not found")

// Record is one stored credential. It is never mutated by the authentication
// engine.
type Record struct {
	Username     string
	PasswordHash string
	UserID       string
	DisplayName  string
	Email        string
	Role         string
}

// Store looks credentials up by username. Implementations return ErrNotFound
// (possibly wrapped) for unknown usernames.
type Store interface {
	LookupCredential(ctx context.Context, username string) (Record, error)
}

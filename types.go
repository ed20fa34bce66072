package dualauth

import (
	"slices"
	"time"

	"github.com/MrEthical07/dualauth/credentials"
	"github.com/MrEthical07/dualauth/session"
)

// AuthResult is returned by a successful Authenticate. Exactly one of
// SessionID and Token is set, according to Scheme.
type AuthResult struct {
	Scheme    Scheme
	Success   bool
	UserID    string
	Role      string
	SessionID string
	Token     string
	// TokenType is "bearer" for the jwt scheme.
	TokenType string
	IssuedAt  time.Time
	ExpiresAt time.Time
	TTL       time.Duration
}

// Identity is the authorized principal resolved from a session or a token.
// Timestamps are UTC regardless of where they came from.
type Identity struct {
	Scheme    Scheme
	UserID    string
	Role      string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasRole reports whether the identity's role is one of roles. An empty
// list is satisfied by any identity.
func (i *Identity) HasRole(roles ...string) bool {
	if i == nil {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	return slices.Contains(roles, i.Role)
}

// AuthorizeRequest carries the artifact of a protected request.
type AuthorizeRequest struct {
	Scheme    Scheme
	Token     string
	SessionID string
	// RequiredRoles, when non-empty, must contain the identity's role.
	RequiredRoles []string
}

// LogoutRequest ends a login. Token logout only verifies the token; session
// logout deletes the session.
type LogoutRequest struct {
	Scheme    Scheme
	Token     string
	SessionID string
}

type (
	// CredentialStore looks up credential records by username.
	CredentialStore = credentials.Store
	// SessionStore holds cookie-scheme sessions.
	SessionStore = session.Store
)

package session

import (
	"context"
	"errors"

	"github.com/MrEthical07/dualauth/autherr"
)

var (
	// ErrSessionInvalid is matched by errors for unknown session identifiers.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrSessionExpired is matched by errors for sessions past ExpiresAt.
	ErrSessionExpired = errors.New("session expired")
	// ErrRedisUnavailable is matched by errors caused by Redis round-trips.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Store is the session table. Implementations must be safe for concurrent use
// and atomic per session identifier.
type Store interface {
	// Create inserts sess under sess.SessionID, replacing any existing record,
	// and returns the identifier.
	Create(ctx context.Context, sess *Session) (string, error)
	// Get returns the session or fails with AUTHORIZATION "session invalid"
	// when absent and "session expired" when present but expired.
	Get(ctx context.Context, sessionID string) (*Session, error)
	// Delete removes the session. An absent identifier fails with AUTHORIZATION
	// "session invalid". An expired record is removed and reported as
	// "session expired".
	Delete(ctx context.Context, sessionID string) error
}

func invalidSession() error {
	return autherr.Sentinel(autherr.KindAuthorization, ErrSessionInvalid.Error(), ErrSessionInvalid)
}

func expiredSession() error {
	return autherr.Sentinel(autherr.KindAuthorization, ErrSessionExpired.Error(), ErrSessionExpired)
}

func validateForCreate(sess *Session) error {
	switch {
	case sess == nil:
		return errors.New("session is nil")
	case sess.SessionID == "":
		return errors.New("session id is required")
	case sess.UserID == "":
		return errors.New("session user id is required")
	case !sess.ExpiresAt.After(sess.CreatedAt):
		return errors.New("session expiry must be after creation")
	}
	return nil
}

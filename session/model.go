package session

import "time"

// Session is the state held for one cookie-scheme login.
type Session struct {
	SessionID string
	UserID    string
	Role      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ExpiredAt reports whether the session is expired at now. A session is valid
// through its ExpiresAt instant inclusive.
func (s *Session) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Clone returns a copy that shares no memory with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

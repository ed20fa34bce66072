package dualauth

// Scheme selects how a caller is authenticated.
type Scheme uint8

const (
	// SchemeUnknown is the zero value and is rejected everywhere.
	SchemeUnknown Scheme = iota
	// SchemeCookie issues a server-held session identified by an opaque id.
	SchemeCookie
	// SchemeJWT issues a self-contained signed token.
	SchemeJWT
)

// ParseScheme maps "cookie" and "jwt" to their Scheme. Anything else,
// including different letter case, is SchemeUnknown.
func ParseScheme(s string) Scheme {
	switch s {
	case "cookie":
		return SchemeCookie
	case "jwt":
		return SchemeJWT
	default:
		return SchemeUnknown
	}
}

func (s Scheme) String() string {
	switch s {
	case SchemeCookie:
		return "cookie"
	case SchemeJWT:
		return "jwt"
	default:
		return "unknown"
	}
}

// Valid reports whether s is cookie or jwt.
func (s Scheme) Valid() bool {
	return s == SchemeCookie || s == SchemeJWT
}

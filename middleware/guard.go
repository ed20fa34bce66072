package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/dualauth"
)

// SessionCookieName is the cookie carrying the session identifier.
const SessionCookieName = "session_id"

// Authorizer is the part of dualauth.Engine the guard needs.
type Authorizer interface {
	Authorize(ctx context.Context, req dualauth.AuthorizeRequest) (*dualauth.Identity, error)
}

type identityContextKey struct{}

// IdentityFromContext returns the identity stored by Guard.
func IdentityFromContext(ctx context.Context) (*dualauth.Identity, bool) {
	ident, ok := ctx.Value(identityContextKey{}).(*dualauth.Identity)
	return ident, ok
}

// Guard authorizes each request with roles as the role requirement and
// stores the identity in the request context. Failures are written with
// WriteError.
func Guard(a Authorizer, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a == nil {
				WriteError(w, dualauth.ErrEngineNotReady)
				return
			}

			ident, err := a.Authorize(r.Context(), RequestArtifacts(r, roles...))
			if err != nil {
				WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestArtifacts extracts the scheme, bearer token and session cookie from r.
func RequestArtifacts(r *http.Request, roles ...string) dualauth.AuthorizeRequest {
	req := dualauth.AuthorizeRequest{
		Scheme:        SchemeFromRequest(r),
		RequiredRoles: roles,
	}
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		req.Token = token
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		req.SessionID = c.Value
	}
	return req
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

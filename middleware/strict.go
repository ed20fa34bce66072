package middleware

import (
	"net/http"

	"github.com/MrEthical07/dualauth"
)

// RequireStrict guards a route that only accepts server-side sessions, so
// every request is checked against the session store and a logout takes
// effect immediately.
func RequireStrict(a Authorizer, roles ...string) func(http.Handler) http.Handler {
	return requireScheme(dualauth.SchemeCookie, a, roles...)
}

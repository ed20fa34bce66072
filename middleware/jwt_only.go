package middleware

import (
	"net/http"

	"github.com/MrEthical07/dualauth"
	"github.com/MrEthical07/dualauth/autherr"
)

// RequireJWTOnly guards a route that only accepts bearer tokens. Requests
// announcing any other scheme fail with BADREQUEST before the engine sees
// them, so no session store lookup happens on this route.
func RequireJWTOnly(a Authorizer, roles ...string) func(http.Handler) http.Handler {
	return requireScheme(dualauth.SchemeJWT, a, roles...)
}

func requireScheme(want dualauth.Scheme, a Authorizer, roles ...string) func(http.Handler) http.Handler {
	guard := Guard(a, roles...)
	return func(next http.Handler) http.Handler {
		guarded := guard(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if SchemeFromRequest(r) != want {
				WriteError(w, autherr.Sentinel(autherr.KindBadRequest, dualauth.ErrInvalidScheme.Error(), dualauth.ErrInvalidScheme))
				return
			}
			guarded.ServeHTTP(w, r)
		})
	}
}

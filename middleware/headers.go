package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/MrEthical07/dualauth"
	"github.com/MrEthical07/dualauth/autherr"
)

// Request headers every non-exempt request must carry.
const (
	HeaderCaller        = "x-caller"
	HeaderCorrelationID = "x-correlationid"
	HeaderAuthScheme    = "x-authscheme"
)

var requiredHeaders = []string{HeaderCaller, HeaderCorrelationID, HeaderAuthScheme}

// DefaultExemptPaths skip the header check.
var DefaultExemptPaths = []string{"/", "/healthz", "/metrics"}

// RequireHeaders fails requests missing any required header with BADREQUEST
// "missing required headers: a, b". Paths in exempt are passed through
// unchanged; nil means DefaultExemptPaths.
func RequireHeaders(exempt []string) func(http.Handler) http.Handler {
	if exempt == nil {
		exempt = DefaultExemptPaths
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(exempt, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			var missing []string
			for _, h := range requiredHeaders {
				if strings.TrimSpace(r.Header.Get(h)) == "" {
					missing = append(missing, h)
				}
			}
			if len(missing) > 0 {
				WriteError(w, autherr.New(autherr.KindBadRequest, "missing required headers: "+strings.Join(missing, ", ")))
				return
			}

			ctx := dualauth.WithCaller(r.Context(), r.Header.Get(HeaderCaller))
			ctx = dualauth.WithCorrelationID(ctx, r.Header.Get(HeaderCorrelationID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SchemeFromRequest parses the x-authscheme header.
func SchemeFromRequest(r *http.Request) dualauth.Scheme {
	return dualauth.ParseScheme(r.Header.Get(HeaderAuthScheme))
}

package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/MrEthical07/dualauth"
	"github.com/MrEthical07/dualauth/middleware"
)

// ProtectedRole is the role GET /auth/protected requires.
const ProtectedRole = "Admin"

// Engine is the part of dualauth.Engine the routes call.
type Engine interface {
	middleware.Authorizer
	Authenticate(ctx context.Context, username, plaintext string, scheme dualauth.Scheme) (*dualauth.AuthResult, error)
	Logout(ctx context.Context, req dualauth.LogoutRequest) error
}

// Options configures New. Engine is required.
type Options struct {
	Engine Engine
	Logger *slog.Logger
	// Metrics serves GET /metrics. Nil leaves the route unregistered.
	Metrics http.Handler
	// SecureCookies forces the Secure attribute on the session cookie even
	// for plain-HTTP requests.
	SecureCookies bool
	// ExemptPaths overrides middleware.DefaultExemptPaths.
	ExemptPaths []string
}

// New returns the HTTP handler for opts.
func New(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &handlers{engine: opts.Engine, logger: logger, secure: opts.SecureCookies}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(accessLog(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequireHeaders(opts.ExemptPaths))

	r.Get("/", h.banner)
	r.Get("/healthz", h.health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.With(middleware.Guard(opts.Engine, ProtectedRole)).Get("/protected", h.protected)
	})

	return r
}

func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.LogAttrs(r.Context(), slog.LevelInfo, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.String("request_id", chimw.GetReqID(r.Context())),
				slog.String("correlation_id", r.Header.Get(middleware.HeaderCorrelationID)),
			)
		})
	}
}

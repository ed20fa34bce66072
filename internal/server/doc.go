// Package server exposes the engine over HTTP with a chi router.
//
// Routes:
//
//	GET  /               service banner
//	GET  /healthz        liveness
//	GET  /metrics        Prometheus exposition (when a handler is supplied)
//	POST /auth/login     form username/password, scheme from x-authscheme
//	GET  /auth/protected requires role Admin
//	POST /auth/logout    ends the login named by the request artifacts
//
// Every route except /, /healthz and /metrics requires the x-caller,
// x-correlationid and x-authscheme headers.
package server

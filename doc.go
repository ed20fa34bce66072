// Package dualauth authenticates users with either server-held sessions
// ("cookie" scheme) or stateless signed tokens ("jwt" scheme) and authorizes
// later requests against a role requirement.
//
// An [Engine] is built once at startup through [New] and the fluent [Builder]:
//
//	engine, err := dualauth.New().
//		WithConfig(cfg).
//		WithCredentialStore(credentials.NewMemoryStore(demo)).
//		WithLogger(logger).
//		Build()
//
// Authenticate verifies a username and password and issues a session
// identifier or a token depending on the requested [Scheme]. Authorize resolves
// the artifact back to an [Identity] and checks role membership after the
// identity is known to be valid. Logout deletes a session strictly: deleting an
// unknown session is an authorization failure.
//
// Every error carries a kind (BADREQUEST, AUTHORIZATION, RESOURCE_NOT_FOUND,
// INTERNAL) readable with [KindOf] and a user-visible message readable with
// [Message]. Transport status codes are assigned by the middleware package.
package dualauth

// Package jwt encodes and decodes the signed, expiring tokens issued by the jwt
// authentication scheme.
//
// A token is self-contained: validity depends only on the HMAC signature and the
// embedded exp claim, so decoding needs no shared state. The flip side is that a
// token cannot be revoked before it expires.
//
// Failures are reported with autherr kinds:
//
//	INTERNAL       signing key unset, signing failed
//	AUTHORIZATION  bad signature, wrong algorithm, expired, otherwise unverifiable
//	BADREQUEST     verified payload lacks the session claims
package jwt

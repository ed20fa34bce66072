package dualauth

import (
	"errors"

	"github.com/MrEthical07/dualauth/autherr"
)

var (
	// ErrInvalidCredentials is matched by failures for unknown users and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidScheme is matched when Authenticate gets a scheme other than cookie or jwt.
	ErrInvalidScheme = errors.New("invalid authentication scheme")
	// ErrMissingCredential is matched when Authorize or Logout has no artifact for the scheme.
	ErrMissingCredential = errors.New("invalid scheme or missing credential")
	// ErrInsufficientRole is matched when the identity's role is not required.
	ErrInsufficientRole = errors.New("insufficient role")
	// ErrSessionCreation is matched when the session store rejects a new session.
	ErrSessionCreation = errors.New("failed to create session")
	// ErrTokenGeneration is matched when a token cannot be signed.
	ErrTokenGeneration = errors.New("failed to generate token")
	// ErrCredentialLookup is matched when the credential store fails for a reason other than an unknown user.
	ErrCredentialLookup = errors.New("credential lookup failed")
	// ErrLoginThrottled is matched when a username has too many recent failed logins.
	ErrLoginThrottled = errors.New("too many login attempts")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Kind classifies a failure. See autherr for the values.
type Kind = autherr.Kind

const (
	KindBadRequest    = autherr.KindBadRequest
	KindAuthorization = autherr.KindAuthorization
	KindNotFound      = autherr.KindNotFound
	KindInternal      = autherr.KindInternal
)

// KindOf returns the kind of err. Errors produced outside this module are INTERNAL.
func KindOf(err error) Kind { return autherr.KindOf(err) }

// Message returns the user-visible message of err. It never contains the
// text of a wrapped cause.
func Message(err error) string { return autherr.Message(err) }

func invalidCredentials() error {
	return autherr.Sentinel(autherr.KindAuthorization, ErrInvalidCredentials.Error(), ErrInvalidCredentials)
}

func invalidScheme() error {
	return autherr.Sentinel(autherr.KindBadRequest, ErrInvalidScheme.Error(), ErrInvalidScheme)
}

func missingCredential() error {
	return autherr.Sentinel(autherr.KindBadRequest, ErrMissingCredential.Error(), ErrMissingCredential)
}

func loginThrottled() error {
	return autherr.Sentinel(autherr.KindAuthorization, ErrLoginThrottled.Error(), ErrLoginThrottled)
}

func insufficientRole() error {
	return autherr.Sentinel(autherr.KindAuthorization, ErrInsufficientRole.Error(), ErrInsufficientRole)
}

func engineNotReady() error {
	return autherr.Sentinel(autherr.KindInternal, ErrEngineNotReady.Error(), ErrEngineNotReady)
}

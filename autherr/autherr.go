package autherr

import (
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// Kind classifies a failure.
type Kind string

const (
	// KindBadRequest marks malformed input: unknown scheme, unparseable claims, missing headers.
	KindBadRequest Kind = "BADREQUEST"
	// KindAuthorization marks invalid or expired credentials, sessions, tokens and role mismatches.
	KindAuthorization Kind = "AUTHORIZATION"
	// KindNotFound is reserved; the engine itself never produces it.
	KindNotFound Kind = "RESOURCE_NOT_FOUND"
	// KindInternal marks configuration, encoding and storage failures.
	KindInternal Kind = "INTERNAL"
)

const domain = "dualauth"

var defaultMessages = map[Kind]string{
	KindBadRequest:    "bad request",
	KindAuthorization: "unauthorized",
	KindNotFound:      "resource not found",
	KindInternal:      "internal error",
}

// New builds an error of the given kind whose public message is msg.
func New(kind Kind, msg string) error {
	return oops.In(domain).Code(string(kind)).Public(msg).Errorf("%s", msg)
}

// Wrap builds an error of the given kind whose public message is msg and whose
// cause is err. errors.Is still reaches err and the sentinels it wraps.
//
// A cause that already carries a kind is flattened to its text so that the
// outer kind wins.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return New(kind, msg)
	}
	if _, ok := oops.AsOops(err); ok {
		err = flattened{err: err}
	}
	return oops.In(domain).Code(string(kind)).Public(msg).Wrapf(err, "%s", msg)
}

// Sentinel returns New(kind, msg) that also matches target with errors.Is.
func Sentinel(kind Kind, msg string, target error) error {
	return oops.In(domain).Code(string(kind)).Public(msg).Wrap(target)
}

// With attaches diagnostic key/value context to an error of the given kind.
func With(kind Kind, msg string, err error, kv ...any) error {
	b := oops.In(domain).Code(string(kind)).Public(msg).With(kv...)
	if err == nil {
		return b.Errorf("%s", msg)
	}
	if _, ok := oops.AsOops(err); ok {
		err = flattened{err: err}
	}
	return b.Wrapf(err, "%s", msg)
}

// KindOf returns the kind carried by err. Errors without a kind are INTERNAL.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	o, ok := oops.AsOops(err)
	if !ok {
		return KindInternal
	}
	code, _ := any(o.Code()).(string)
	switch k := Kind(code); k {
	case KindBadRequest, KindAuthorization, KindNotFound, KindInternal:
		return k
	default:
		return KindInternal
	}
}

// Is reports whether err carries kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-visible message for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	kind := KindOf(err)
	if _, ok := oops.AsOops(err); !ok {
		return defaultMessages[kind]
	}
	return oops.GetPublic(err, defaultMessages[kind])
}

// LogError logs err with its kind, public message and oops context.
func LogError(logger *slog.Logger, msg string, err error) {
	if logger == nil || err == nil {
		return
	}
	attrs := []any{
		"kind", string(KindOf(err)),
		"public", Message(err),
		"error", err.Error(),
	}
	if o, ok := oops.AsOops(err); ok {
		if ctx := o.Context(); len(ctx) > 0 {
			attrs = append(attrs, "context", ctx)
		}
	}
	logger.Error(msg, attrs...)
}

// flattened hides the kinds inside err while still matching its sentinels.
type flattened struct {
	err error
}

func (f flattened) Error() string { return f.err.Error() }

func (f flattened) Is(target error) bool { return errors.Is(f.err, target) }

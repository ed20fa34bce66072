package dualauth

import "context"

type callerContextKey struct{}
type correlationIDContextKey struct{}

// WithCaller attaches the calling service name (the x-caller header) to ctx.
// The Engine stamps it onto audit events.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// WithCorrelationID attaches the request correlation id (the x-correlationid
// header) to ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDContextKey{}, id)
}

// CallerFromContext returns the value set by WithCaller, or "".
func CallerFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	caller, _ := ctx.Value(callerContextKey{}).(string)
	return caller
}

// CorrelationIDFromContext returns the value set by WithCorrelationID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationIDContextKey{}).(string)
	return id
}

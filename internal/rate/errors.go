package rate

import "errors"

var (
	// ErrRateLimited is returned when a key has used up its attempt budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("rate limiter backend unavailable")
)

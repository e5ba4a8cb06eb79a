package rate

import "errors"

var (
	// ErrRateLimited is returned by limiters built on FixedWindow when a budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrInvalidWindow is returned for non-positive windows.
	ErrInvalidWindow = errors.New("invalid rate window")
)

package rate

import "errors"

var (
	// ErrRedisUnavailable wraps failures talking to the Redis store.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrInvalidWindow is returned for non-positive windows.
	ErrInvalidWindow = errors.New("invalid rate limit window")
)

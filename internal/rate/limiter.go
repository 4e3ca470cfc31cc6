package rate

import (
	"context"
	"time"
)

// Class names an endpoint family with its own limit.
type Class string

const (
	ClassSignup         Class = "signup"
	ClassVerify         Class = "verify"
	ClassResend         Class = "resend"
	ClassLogin          Class = "login"
	ClassForgotPassword Class = "forgot_password"
)

// Limit is the ceiling for one class. A zero Max disables limiting.
type Limit struct {
	Window time.Duration
	Max    int
}

// Store records requests in a sliding window.
type Store interface {
	// CheckAndRecord reports whether key has fewer than max requests in the
	// trailing window, recording this request when it does.
	CheckAndRecord(ctx context.Context, key string, window time.Duration, max int) (bool, error)
}

// Limiter applies per-class limits on top of a Store.
type Limiter struct {
	store  Store
	limits map[Class]Limit
}

// New creates a Limiter. limits is copied.
func New(store Store, limits map[Class]Limit) *Limiter {
	copied := make(map[Class]Limit, len(limits))
	for class, limit := range limits {
		copied[class] = limit
	}
	return &Limiter{store: store, limits: copied}
}

// Allow reports whether identity may call an endpoint of class now. Classes
// without a configured limit are always allowed.
func (l *Limiter) Allow(ctx context.Context, identity string, class Class) (bool, error) {
	if l == nil || l.store == nil {
		return true, nil
	}
	limit, ok := l.limits[class]
	if !ok || limit.Max <= 0 {
		return true, nil
	}
	return l.store.CheckAndRecord(ctx, Key(identity, class), limit.Window, limit.Max)
}

// Key builds the store key for identity under class.
func Key(identity string, class Class) string {
	return identity + ":" + string(class)
}

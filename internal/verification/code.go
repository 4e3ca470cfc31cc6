package verification

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"
)

var (
	// ErrAttemptsExhausted means the attempt budget was already spent.
	ErrAttemptsExhausted = errors.New("verification attempts exhausted")
	// ErrExpired means the code expired before submission.
	ErrExpired = errors.New("verification code expired")
	// ErrMismatch means the submitted code was wrong.
	ErrMismatch = errors.New("verification code mismatch")
	// ErrNoCode means no code is outstanding.
	ErrNoCode = errors.New("no verification code outstanding")
)

// Config controls code shape and lifetime.
type Config struct {
	Digits      int
	TTL         time.Duration
	MaxAttempts int
}

// Result is the outcome of one Validate call.
type Result struct {
	Valid             bool
	Err               error
	RemainingAttempts int
	Expired           bool
	RateLimited       bool
}

// Engine issues and validates codes.
type Engine struct {
	cfg    Config
	now    func() time.Time
	random io.Reader
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRandom overrides the digit source. Production code must leave the
// default crypto/rand reader in place.
func WithRandom(r io.Reader) Option {
	return func(e *Engine) {
		if r != nil {
			e.random = r
		}
	}
}

// New validates cfg and builds an Engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.Digits < 4 || cfg.Digits > 10 {
		return nil, errors.New("verification Digits must be between 4 and 10")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("verification TTL must be > 0")
	}
	if cfg.MaxAttempts <= 0 {
		return nil, errors.New("verification MaxAttempts must be > 0")
	}
	e := &Engine{cfg: cfg, now: time.Now, random: rand.Reader}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// TTL returns the configured code lifetime.
func (e *Engine) TTL() time.Duration {
	return e.cfg.TTL
}

// Issue generates a new code and its expiry.
func (e *Engine) Issue() (string, time.Time, error) {
	var b strings.Builder
	b.Grow(e.cfg.Digits)

	ten := big.NewInt(10)
	for i := 0; i < e.cfg.Digits; i++ {
		n, err := rand.Int(e.random, ten)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("verification: generate code: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), e.now().Add(e.cfg.TTL), nil
}

// Validate checks submitted against the stored code. Checks run in a fixed
// order: attempt budget, outstanding code, expiry, then a constant-time
// comparison.
//
// ErrNoCode is reported only once the attempt budget has been checked, so an
// exhausted account still gets ErrAttemptsExhausted. It comes before the
// expiry check and does not spend an attempt.
func (e *Engine) Validate(submitted, stored string, expiresAt *time.Time, attemptsSoFar int) Result {
	if attemptsSoFar >= e.cfg.MaxAttempts {
		return Result{Err: ErrAttemptsExhausted, RateLimited: true}
	}
	remaining := e.cfg.MaxAttempts - attemptsSoFar
	if stored == "" || expiresAt == nil {
		return Result{Err: ErrNoCode, RemainingAttempts: remaining}
	}
	if e.now().After(*expiresAt) {
		return Result{Err: ErrExpired, Expired: true, RemainingAttempts: remaining}
	}
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(stored)) != 1 {
		return Result{Err: ErrMismatch, RemainingAttempts: remaining - 1}
	}
	return Result{Valid: true, RemainingAttempts: remaining}
}

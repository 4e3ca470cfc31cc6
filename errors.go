package goGate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrValidation is wrapped by *ValidationError for malformed input.
	ErrValidation = errors.New("invalid request")
	// ErrRateLimited is returned when a rate-limit class refuses the caller.
	// It never names the limiting key.
	ErrRateLimited = errors.New("too many requests, try again later")
	// ErrRiskBlocked is wrapped by *BlockedError when risk scoring refuses a
	// signup.
	ErrRiskBlocked = errors.New("account creation restricted")
	// ErrInvalidOrExpiredCode covers wrong, expired, missing and exhausted
	// codes alike.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	// ErrLocked is wrapped by *LockedError for authentications against a
	// locked account.
	ErrLocked = errors.New("account locked")
	// ErrInvalidCredentials is returned for unknown identifiers and wrong
	// passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountUnverified is returned when a correct password is presented
	// for an account that has not completed verification.
	ErrAccountUnverified = errors.New("account unverified")
	// ErrAccountExpired is returned for accounts past ExpiresAt.
	ErrAccountExpired = errors.New("account expired")
	// ErrAccountDisabled is returned for deactivated accounts.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAccountExists is returned when the email or username is taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountNotFound is returned by operator actions on an unknown ID.
	ErrAccountNotFound = errors.New("account not found")
	// ErrRepository covers every persistence failure. Details are logged,
	// never returned.
	ErrRepository = errors.New("service unavailable")
	// ErrConcurrentUpdate is returned when an account write lost the version
	// race more times than the configured retry budget. It matches
	// ErrRepository under errors.Is.
	ErrConcurrentUpdate = fmt.Errorf("%w: concurrent update", ErrRepository)
	// ErrTokenInvalid is returned by ValidateAccessToken.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokensDisabled is returned by ValidateAccessToken when token
	// issuance is not configured.
	ErrTokensDisabled = errors.New("access tokens disabled")
	// ErrPasswordResetDisabled is returned when no PasswordResetMailer is
	// configured.
	ErrPasswordResetDisabled = errors.New("password reset disabled")
	// ErrEngineNotReady is returned by methods on a nil or partially built
	// Engine.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrBuilderUsed is returned by a second Build on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrRepositoryRequired is returned by Build without WithRepository.
	ErrRepositoryRequired = errors.New("account repository required")
	// ErrMailerRequired is returned by Build without WithMailer.
	ErrMailerRequired = errors.New("mailer required")
)

// ValidationError lists the offending fields and their messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// BlockedError carries the caller-facing message of a block decision.
type BlockedError struct {
	Message string
}

func (e *BlockedError) Error() string {
	if e == nil || e.Message == "" {
		return ErrRiskBlocked.Error()
	}
	return e.Message
}

func (e *BlockedError) Unwrap() error { return ErrRiskBlocked }

// LockedError reports how long the lock still holds.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	if e == nil {
		return ErrLocked.Error()
	}
	return fmt.Sprintf("%s, try again in %s", ErrLocked, e.Remaining.Round(time.Second))
}

func (e *LockedError) Unwrap() error { return ErrLocked }

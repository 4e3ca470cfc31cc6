package account

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned when a mutator is applied to an account
// whose current state does not allow it.
var ErrInvalidTransition = errors.New("invalid account state transition")

// LockoutPolicy configures the failed-login lock.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

var transitions = map[State]map[State]struct{}{
	StateUnverified: {
		StateActive:   {},
		StateDisabled: {},
	},
	StateActive: {
		StateLocked:   {},
		StateExpired:  {},
		StateDisabled: {},
	},
	StateLocked: {
		StateActive:   {},
		StateDisabled: {},
	},
	StateExpired: {
		StateActive:   {},
		StateDisabled: {},
	},
	StateDisabled: {},
}

// CanTransition reports whether moving from one state to another is allowed.
func CanTransition(from, to State) bool {
	targets, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

func requireTransition(a *Account, now time.Time, to State) error {
	from := StateAt(a, now)
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// IssueVerificationCode stores a fresh code on an unverified account and
// resets its attempt counter.
func IssueVerificationCode(a *Account, code string, expiresAt, now time.Time) error {
	if StateAt(a, now) != StateUnverified || a.EmailVerified {
		return fmt.Errorf("%w: code issued to %s account", ErrInvalidTransition, StateAt(a, now))
	}
	a.VerificationCode = code
	a.VerificationCodeExpiresAt = timePtr(expiresAt)
	a.VerificationAttempts = 0
	a.UpdatedAt = now
	return nil
}

// RecordVerificationFailure consumes one verification attempt.
func RecordVerificationFailure(a *Account, now time.Time) {
	a.VerificationAttempts++
	a.UpdatedAt = now
}

// Activate moves an unverified account to active. The code, its expiry and
// the attempt counter are cleared together with any lock state.
func Activate(a *Account, now time.Time) error {
	if err := requireTransition(a, now, StateActive); err != nil {
		return err
	}
	a.EmailVerified = true
	a.IsActive = true
	a.VerificationCode = ""
	a.VerificationCodeExpiresAt = nil
	a.VerificationAttempts = 0
	a.FailedLoginAttempts = 0
	a.LockedUntil = nil
	a.UpdatedAt = now
	return nil
}

// ReleaseExpiredLock clears a lock whose window has elapsed, along with the
// failure counter that produced it. It reports whether anything changed.
func ReleaseExpiredLock(a *Account, now time.Time) bool {
	if a.LockedUntil == nil || !now.After(*a.LockedUntil) {
		return false
	}
	a.LockedUntil = nil
	a.FailedLoginAttempts = 0
	a.UpdatedAt = now
	return true
}

// RecordLoginFailure counts a failed password check and locks the account
// once the counter reaches the policy threshold. It reports whether this
// failure applied the lock.
func RecordLoginFailure(a *Account, now time.Time, policy LockoutPolicy) bool {
	a.FailedLoginAttempts++
	a.UpdatedAt = now
	if policy.Threshold <= 0 || a.FailedLoginAttempts < policy.Threshold {
		return false
	}
	a.LockedUntil = timePtr(now.Add(policy.Duration))
	return true
}

// RecordLoginSuccess resets failure state after a successful authentication.
func RecordLoginSuccess(a *Account, ip string, now time.Time) {
	a.FailedLoginAttempts = 0
	a.LockedUntil = nil
	a.LastLoginIP = ip
	a.LastLoginAt = timePtr(now)
	a.UpdatedAt = now
}

// Unlock clears the lock and failure counter regardless of the window.
func Unlock(a *Account, now time.Time) error {
	if a.DeactivatedAt != nil {
		return fmt.Errorf("%w: unlock of disabled account", ErrInvalidTransition)
	}
	a.LockedUntil = nil
	a.FailedLoginAttempts = 0
	a.UpdatedAt = now
	return nil
}

// Deactivate disables the account. Disabled is terminal.
func Deactivate(a *Account, now time.Time) error {
	if err := requireTransition(a, now, StateDisabled); err != nil {
		return err
	}
	a.DeactivatedAt = timePtr(now)
	a.VerificationCode = ""
	a.VerificationCodeExpiresAt = nil
	a.ResetCode = ""
	a.ResetCodeExpiresAt = nil
	a.UpdatedAt = now
	return nil
}

// IssueResetCode stores a fresh password-reset code and resets its counter.
func IssueResetCode(a *Account, code string, expiresAt, now time.Time) {
	a.ResetCode = code
	a.ResetCodeExpiresAt = timePtr(expiresAt)
	a.ResetAttempts = 0
	a.UpdatedAt = now
}

// RecordResetFailure consumes one password-reset attempt.
func RecordResetFailure(a *Account, now time.Time) {
	a.ResetAttempts++
	a.UpdatedAt = now
}

// ApplyPasswordReset installs a new password hash, clears the reset code
// and releases any lock.
func ApplyPasswordReset(a *Account, passwordHash string, now time.Time) {
	a.PasswordHash = passwordHash
	a.PasswordChangedAt = timePtr(now)
	a.ResetCode = ""
	a.ResetCodeExpiresAt = nil
	a.ResetAttempts = 0
	a.FailedLoginAttempts = 0
	a.LockedUntil = nil
	a.UpdatedAt = now
}

package account

import (
	"strings"
	"time"
)

// State is the lifecycle state of an account at a given instant.
type State uint8

const (
	// StateUnverified is a created account still holding a verification code.
	StateUnverified State = iota
	// StateActive is a verified, usable account.
	StateActive
	// StateLocked is an account inside a failed-login lock window.
	StateLocked
	// StateExpired is an account whose trial or subscription has lapsed.
	StateExpired
	// StateDisabled is a deactivated account. Accounts are never deleted.
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateUnverified:
		return "unverified"
	case StateActive:
		return "active"
	case StateLocked:
		return "locked"
	case StateExpired:
		return "expired"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Account is the persisted identity record.
//
// Email is stored lowercased and is unique. NormalizedEmail is the
// alias-folded form used for near-duplicate detection and is not unique.
// Version is bumped by every successful Repository.Save.
type Account struct {
	ID              string
	Username        string
	Email           string
	NormalizedEmail string
	PasswordHash    string
	IsSuperuser     bool
	IsActive        bool

	EmailVerified             bool
	VerificationCode          string
	VerificationCodeExpiresAt *time.Time
	VerificationAttempts      int

	ResetCode          string
	ResetCodeExpiresAt *time.Time
	ResetAttempts      int

	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastLoginIP         string
	LastLoginAt         *time.Time
	PasswordChangedAt   *time.Time

	SignupIP          string
	DeviceFingerprint string

	ExpiresAt     *time.Time
	DeactivatedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

// StateAt derives the account state at now.
//
// A lock is still in force at exactly LockedUntil; it releases once now is
// strictly after it.
func StateAt(a *Account, now time.Time) State {
	switch {
	case a.DeactivatedAt != nil:
		return StateDisabled
	case !a.IsActive:
		return StateUnverified
	case a.LockedUntil != nil && !now.After(*a.LockedUntil):
		return StateLocked
	case a.ExpiresAt != nil && now.After(*a.ExpiresAt):
		return StateExpired
	default:
		return StateActive
	}
}

// IsEmailVariant reports whether the normalized address stored shares the
// domain of the normalized address candidate and its local part begins with
// candidate's local part. Both arguments are local@domain, already lowercased.
func IsEmailVariant(stored, candidate string) bool {
	sLocal, sDomain, ok := splitNormalized(stored)
	if !ok {
		return false
	}
	pLocal, pDomain, ok := splitNormalized(candidate)
	if !ok {
		return false
	}
	return sDomain == pDomain && strings.HasPrefix(sLocal, pLocal)
}

func splitNormalized(addr string) (local, domain string, ok bool) {
	at := strings.LastIndexByte(addr, '@')
	if at <= 0 || at == len(addr)-1 {
		return "", "", false
	}
	return addr[:at], addr[at+1:], true
}

// LockRemaining reports how long the lock on a still has to run at now.
func LockRemaining(a *Account, now time.Time) time.Duration {
	if a.LockedUntil == nil || now.After(*a.LockedUntil) {
		return 0
	}
	return a.LockedUntil.Sub(now)
}

// Clone returns a deep copy of a.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.VerificationCodeExpiresAt = cloneTime(a.VerificationCodeExpiresAt)
	c.ResetCodeExpiresAt = cloneTime(a.ResetCodeExpiresAt)
	c.LockedUntil = cloneTime(a.LockedUntil)
	c.LastLoginAt = cloneTime(a.LastLoginAt)
	c.PasswordChangedAt = cloneTime(a.PasswordChangedAt)
	c.ExpiresAt = cloneTime(a.ExpiresAt)
	c.DeactivatedAt = cloneTime(a.DeactivatedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}

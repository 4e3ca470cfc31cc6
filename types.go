package goGate

import (
	"context"
	"time"

	"github.com/MrEthical07/goGate/account"
	"github.com/MrEthical07/goGate/risk"
)

// Account is the persisted account record.
type Account = account.Account

// Mailer delivers verification codes. A returned error is logged and
// counted; it never fails the calling operation.
type Mailer interface {
	SendVerificationCode(ctx context.Context, email, username, code string) error
}

// PasswordResetMailer delivers password-reset codes. Engines built without
// one return ErrPasswordResetDisabled from the reset operations.
type PasswordResetMailer interface {
	SendPasswordResetCode(ctx context.Context, email, username, code string) error
}

// PasswordHasher hashes and verifies passwords. Verify reports a mismatch as
// (false, nil); an error means the stored hash could not be read.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) (bool, error)
}

// passwordRehasher is implemented by hashers that can flag outdated hashes.
type passwordRehasher interface {
	NeedsRehash(hash string) (bool, error)
}

// Clock is the engine time source.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// RateLimitStore records requests in a sliding window. It has the same
// method set as the built-in memory and Redis stores.
type RateLimitStore interface {
	CheckAndRecord(ctx context.Context, key string, window time.Duration, max int) (bool, error)
}

// SignupRequest is the input to Signup. IP and DeviceFingerprint fall back to
// the values attached with WithClientIP and WithDeviceFingerprint. An empty
// Username is derived from the email.
type SignupRequest struct {
	Email             string
	Password          string
	Username          string
	IP                string
	DeviceFingerprint string
}

// SignupResult is returned for allow and warn decisions. Risk is meant for
// server-side logging and must not be echoed to the caller.
type SignupResult struct {
	Account *Account
	Risk    risk.Assessment
}

// VerifyResult holds the activated account.
type VerifyResult struct {
	Account *Account
}

// CodeResult is the enumeration-safe response of ResendCode and
// RequestPasswordReset. It is identical for known and unknown emails.
type CodeResult struct {
	ExpiresAt time.Time
}

// AuthenticateResult holds the authenticated account and, when tokens are
// enabled, a signed access token.
type AuthenticateResult struct {
	Account              *Account
	AccessToken          string
	AccessTokenExpiresAt time.Time
}

// TrustedAccountRequest is the input to CreateTrustedAccount.
type TrustedAccountRequest struct {
	Email     string
	Password  string
	Username  string
	Superuser bool
	ExpiresAt *time.Time
}

// TokenClaims is the verified content of an access token.
type TokenClaims struct {
	AccountID string
	Username  string
	Superuser bool
	ExpiresAt time.Time
}

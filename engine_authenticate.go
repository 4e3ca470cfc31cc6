package goGate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/goGate/account"
	"github.com/MrEthical07/goGate/internal/rate"
	"github.com/MrEthical07/goGate/jwt"
)

const dummyPassword = "gogate-timing-equalizer-password"

// Authenticate checks identifier (a username, or an email when it contains
// "@") and password.
//
// A locked account fails fast with a *LockedError holding the remaining lock
// time, before the password is checked. A lock whose window has elapsed is
// released lazily here. Each wrong password increments the failure counter
// and the threshold-th consecutive failure applies the lock; the request
// that applies it still reports ErrInvalidCredentials. Unknown identifiers
// also report ErrInvalidCredentials after a dummy hash comparison.
func (e *Engine) Authenticate(ctx context.Context, identifier, plain string) (AuthenticateResult, error) {
	if err := e.ready(); err != nil {
		return AuthenticateResult{}, err
	}
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	ip := ClientIPFromContext(ctx)

	if err := e.allow(ctx, rateIdentity(ctx, identifier), rate.ClassLogin); err != nil {
		return AuthenticateResult{}, err
	}

	found, err := e.lookupIdentifier(ctx, identifier)
	if errors.Is(err, account.ErrNotFound) {
		_, _ = e.hasher.Verify(plain, e.dummyHash)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidCredentials, nil)
		return AuthenticateResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthenticateResult{}, e.repoError(ctx, "login lookup", err)
	}

	verified := map[string]bool{}
	var (
		locked    time.Duration
		lockedNow bool
	)
	a, err := e.mutateAccount(ctx, e.loadByID(found.ID), func(a *Account, now time.Time) (bool, error) {
		locked, lockedNow = 0, false
		// Checked ahead of StateAt so pending accounts lock too.
		if a.LockedUntil != nil && !now.After(*a.LockedUntil) {
			locked = account.LockRemaining(a, now)
			return false, &LockedError{Remaining: locked}
		}
		save := account.ReleaseExpiredLock(a, now)

		ok, seen := verified[a.PasswordHash]
		if !seen {
			var verr error
			ok, verr = e.hasher.Verify(plain, a.PasswordHash)
			if verr != nil {
				e.logger.ErrorContext(ctx, "stored password hash unreadable",
					slog.String("account_id", a.ID),
					slog.Any("error", verr),
				)
				ok = false
			}
			verified[a.PasswordHash] = ok
		}
		if !ok {
			lockedNow = account.RecordLoginFailure(a, now, account.LockoutPolicy{
				Threshold: e.config.Lockout.Threshold,
				Duration:  e.config.Lockout.Duration,
			})
			return true, ErrInvalidCredentials
		}

		switch account.StateAt(a, now) {
		case account.StateDisabled:
			return save, ErrAccountDisabled
		case account.StateUnverified:
			return save, ErrAccountUnverified
		case account.StateExpired:
			return save, ErrAccountExpired
		}

		account.RecordLoginSuccess(a, ip, now)
		e.maybeRehash(ctx, a, plain)
		return true, nil
	})

	var lockedErr *LockedError
	switch {
	case errors.As(err, &lockedErr):
		e.metricInc(MetricLoginLockedRejected)
		e.emitAudit(ctx, auditEventLoginLocked, false, found.ID, err, nil)
		return AuthenticateResult{}, err
	case errors.Is(err, ErrInvalidCredentials):
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, found.ID, err, nil)
		if lockedNow {
			e.metricInc(MetricAccountLocked)
			e.logger.WarnContext(ctx, "account locked after failed logins",
				slog.String("account_id", found.ID),
				slog.Int("failures", a.FailedLoginAttempts),
			)
			e.emitAudit(ctx, auditEventAccountLocked, true, found.ID, nil, nil)
		}
		return AuthenticateResult{}, err
	case errors.Is(err, ErrAccountDisabled), errors.Is(err, ErrAccountUnverified), errors.Is(err, ErrAccountExpired):
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, found.ID, err, nil)
		return AuthenticateResult{}, err
	case errors.Is(err, account.ErrNotFound):
		e.metricInc(MetricLoginFailure)
		return AuthenticateResult{}, ErrInvalidCredentials
	case err != nil:
		return AuthenticateResult{}, e.repoError(ctx, "login", err)
	}

	out := AuthenticateResult{Account: a}
	if e.tokens != nil {
		token, err := e.tokens.Mint(jwt.Subject{AccountID: a.ID, Username: a.Username, Superuser: a.IsSuperuser})
		if err != nil {
			return AuthenticateResult{}, e.repoError(ctx, "mint access token", err)
		}
		out.AccessToken = token.Value
		out.AccessTokenExpiresAt = token.ExpiresAt
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, a.ID, nil, nil)
	return out, nil
}

func (e *Engine) lookupIdentifier(ctx context.Context, identifier string) (*Account, error) {
	if identifier == "" {
		return nil, account.ErrNotFound
	}
	a, err := e.accounts.FindByUsername(ctx, identifier)
	if err == nil || !errors.Is(err, account.ErrNotFound) || !strings.Contains(identifier, "@") {
		return a, err
	}
	return e.accounts.FindByEmail(ctx, identifier)
}

// maybeRehash replaces a hash produced with outdated parameters. Failures
// leave the old hash in place.
func (e *Engine) maybeRehash(ctx context.Context, a *Account, plain string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	r, ok := e.hasher.(passwordRehasher)
	if !ok {
		return
	}
	needs, err := r.NeedsRehash(a.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := e.hasher.Hash(plain)
	if err != nil {
		e.logger.WarnContext(ctx, "password rehash failed", slog.String("account_id", a.ID), slog.Any("error", err))
		return
	}
	a.PasswordHash = hash
}

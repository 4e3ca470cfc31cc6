package goGate

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goGate/account"
	"github.com/MrEthical07/goGate/risk"
)

// CreateTrustedAccount creates an account that is active and verified from
// the start. It bypasses rate limiting, risk scoring and code issuance and
// must only be reachable from operator tooling.
func (e *Engine) CreateTrustedAccount(ctx context.Context, req TrustedAccountRequest) (*Account, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if err := e.validateRegistration(registrationInput{Email: email, Password: req.Password, Username: username}); err != nil {
		return nil, err
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, e.repoError(ctx, "password hash", err)
	}
	now := e.now()
	a := &Account{
		ID:              e.newID(),
		Email:           email,
		NormalizedEmail: risk.NormalizeEmail(email),
		PasswordHash:    hash,
		IsSuperuser:     req.Superuser,
		IsActive:        true,
		EmailVerified:   true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.ExpiresAt != nil {
		exp := *req.ExpiresAt
		a.ExpiresAt = &exp
	}
	if err := e.createWithUsername(ctx, a, username); err != nil {
		return nil, err
	}

	e.emitAudit(ctx, auditEventAccountTrusted, true, a.ID, nil, func() map[string]string {
		if a.IsSuperuser {
			return map[string]string{"superuser": "true"}
		}
		return nil
	})
	return a, nil
}

// DeactivateAccount disables the account. Disabled accounts are kept, never
// deleted, and deactivating one twice is a no-op.
func (e *Engine) DeactivateAccount(ctx context.Context, id string) error {
	if err := e.ready(); err != nil {
		return err
	}
	_, err := e.mutateAccount(ctx, e.loadByID(id), func(a *Account, now time.Time) (bool, error) {
		if a.DeactivatedAt != nil {
			return false, nil
		}
		if err := account.Deactivate(a, now); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return e.operatorError(ctx, "deactivate account", err)
	}
	e.metricInc(MetricAccountDeactivated)
	e.emitAudit(ctx, auditEventAccountDeactivated, true, id, nil, nil)
	return nil
}

// UnlockAccount clears a login lock and the failure counter before the lock
// window elapses.
func (e *Engine) UnlockAccount(ctx context.Context, id string) error {
	if err := e.ready(); err != nil {
		return err
	}
	_, err := e.mutateAccount(ctx, e.loadByID(id), func(a *Account, now time.Time) (bool, error) {
		if account.StateAt(a, now) == account.StateDisabled {
			return false, ErrAccountDisabled
		}
		if a.LockedUntil == nil && a.FailedLoginAttempts == 0 {
			return false, nil
		}
		if err := account.Unlock(a, now); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return e.operatorError(ctx, "unlock account", err)
	}
	e.metricInc(MetricAccountUnlocked)
	e.emitAudit(ctx, auditEventAccountUnlocked, true, id, nil, nil)
	return nil
}

func (e *Engine) operatorError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, account.ErrNotFound):
		return ErrAccountNotFound
	case errors.Is(err, ErrAccountDisabled), errors.Is(err, account.ErrInvalidTransition):
		return ErrAccountDisabled
	default:
		return e.repoError(ctx, op, err)
	}
}

// ValidateAccessToken verifies a token minted by Authenticate.
func (e *Engine) ValidateAccessToken(_ context.Context, token string) (TokenClaims, error) {
	if e == nil {
		return TokenClaims{}, ErrEngineNotReady
	}
	if e.tokens == nil {
		return TokenClaims{}, ErrTokensDisabled
	}
	claims, err := e.tokens.Verify(token)
	if err != nil {
		return TokenClaims{}, ErrTokenInvalid
	}
	out := TokenClaims{
		AccountID: claims.Subject,
		Username:  claims.Username,
		Superuser: claims.Superuser,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

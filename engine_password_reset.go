package goGate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/goGate/account"
	"github.com/MrEthical07/goGate/internal/rate"
	"github.com/MrEthical07/goGate/internal/verification"
)

// RequestPasswordReset mails a reset code to the account registered under
// email. Like ResendCode it answers identically whether or not the account
// exists; disabled accounts receive no code.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) (CodeResult, error) {
	if err := e.ready(); err != nil {
		return CodeResult{}, err
	}
	if e.resetMailer == nil || e.resetCodes == nil {
		return CodeResult{}, ErrPasswordResetDisabled
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return CodeResult{}, err
	}
	if err := e.allow(ctx, email, rate.ClassForgotPassword); err != nil {
		return CodeResult{}, err
	}

	e.metricInc(MetricPasswordResetRequest)
	generic := CodeResult{ExpiresAt: e.now().Add(e.resetCodes.TTL())}

	code, _, err := e.resetCodes.Issue()
	if err != nil {
		e.logger.ErrorContext(ctx, "reset code generation failed", slog.Any("error", err))
		return generic, nil
	}

	var issued bool
	a, err := e.mutateAccount(ctx, e.loadByEmail(email), func(a *Account, now time.Time) (bool, error) {
		issued = false
		if account.StateAt(a, now) == account.StateDisabled {
			return false, nil
		}
		account.IssueResetCode(a, code, generic.ExpiresAt, now)
		issued = true
		return true, nil
	})
	switch {
	case errors.Is(err, account.ErrNotFound):
		e.emitAudit(ctx, auditEventPasswordResetReq, true, "", nil, nil)
		return generic, nil
	case err != nil:
		_ = e.repoError(ctx, "request password reset", err)
		return generic, nil
	}

	e.emitAudit(ctx, auditEventPasswordResetReq, true, a.ID, nil, nil)
	if issued {
		if err := e.resetMailer.SendPasswordResetCode(ctx, a.Email, a.Username, a.ResetCode); err != nil {
			e.metricInc(MetricMailerFailure)
			e.logger.ErrorContext(ctx, "password reset mail failed", slog.String("account_id", a.ID), slog.Any("error", err))
		}
	}
	return generic, nil
}

// ResetPassword replaces the password of the account registered under email
// when code matches its outstanding reset code. The new password must pass
// the length policy. Code failures follow VerifyCode: a single
// ErrInvalidOrExpiredCode, with wrong guesses consuming reset attempts.
// Success also releases any login lock.
func (e *Engine) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.resetMailer == nil || e.resetCodes == nil {
		return ErrPasswordResetDisabled
	}
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)

	if err := e.allow(ctx, rateIdentity(ctx, email), rate.ClassVerify); err != nil {
		return err
	}
	if err := e.validatePassword(newPassword); err != nil {
		return err
	}
	if email == "" || code == "" {
		e.metricInc(MetricPasswordResetFailure)
		return ErrInvalidOrExpiredCode
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return e.repoError(ctx, "password hash", err)
	}

	a, err := e.mutateAccount(ctx, e.loadByEmail(email), func(a *Account, now time.Time) (bool, error) {
		if account.StateAt(a, now) == account.StateDisabled {
			return false, ErrInvalidOrExpiredCode
		}
		res := e.resetCodes.Validate(code, a.ResetCode, a.ResetCodeExpiresAt, a.ResetAttempts)
		switch {
		case res.Valid:
			account.ApplyPasswordReset(a, hash, now)
			return true, nil
		case errors.Is(res.Err, verification.ErrMismatch):
			account.RecordResetFailure(a, now)
			return true, ErrInvalidOrExpiredCode
		default:
			return false, ErrInvalidOrExpiredCode
		}
	})
	switch {
	case errors.Is(err, account.ErrNotFound), errors.Is(err, ErrInvalidOrExpiredCode):
		e.metricInc(MetricPasswordResetFailure)
		accountID := ""
		if a != nil {
			accountID = a.ID
		}
		e.emitAudit(ctx, auditEventPasswordResetDone, false, accountID, ErrInvalidOrExpiredCode, nil)
		return ErrInvalidOrExpiredCode
	case err != nil:
		return e.repoError(ctx, "reset password", err)
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordResetDone, true, a.ID, nil, nil)
	return nil
}

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

// VerifyCode activates the unverified account for email when code matches.
//
// Every rejection, whether the code is wrong, expired, missing or out of
// attempts, or the account does not exist, returns ErrInvalidOrExpiredCode.
// A wrong code consumes one attempt, and that write commits before the
// error is returned.
func (e *Engine) VerifyCode(ctx context.Context, email, code string) (VerifyResult, error) {
	if err := e.ready(); err != nil {
		return VerifyResult{}, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)

	if err := e.allow(ctx, rateIdentity(ctx, email), rate.ClassVerify); err != nil {
		return VerifyResult{}, err
	}
	if email == "" || code == "" {
		e.metricInc(MetricVerificationFailure)
		return VerifyResult{}, ErrInvalidOrExpiredCode
	}

	var result verification.Result
	a, err := e.mutateAccount(ctx, e.loadByEmail(email), func(a *Account, now time.Time) (bool, error) {
		result = verification.Result{}
		if account.StateAt(a, now) != account.StateUnverified {
			return false, ErrInvalidOrExpiredCode
		}
		result = e.codes.Validate(code, a.VerificationCode, a.VerificationCodeExpiresAt, a.VerificationAttempts)
		switch {
		case result.Valid:
			if err := account.Activate(a, now); err != nil {
				return false, ErrInvalidOrExpiredCode
			}
			return true, nil
		case errors.Is(result.Err, verification.ErrMismatch):
			account.RecordVerificationFailure(a, now)
			return true, ErrInvalidOrExpiredCode
		default:
			return false, ErrInvalidOrExpiredCode
		}
	})
	switch {
	case errors.Is(err, account.ErrNotFound):
		e.metricInc(MetricVerificationFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, "", ErrInvalidOrExpiredCode, nil)
		return VerifyResult{}, ErrInvalidOrExpiredCode
	case errors.Is(err, ErrInvalidOrExpiredCode):
		switch {
		case result.RateLimited:
			e.metricInc(MetricVerificationAttemptsExceeded)
		case result.Expired:
			e.metricInc(MetricVerificationExpired)
		default:
			e.metricInc(MetricVerificationFailure)
		}
		e.emitAudit(ctx, auditEventVerifyFailure, false, a.ID, err, func() map[string]string {
			return verifyFailureMetadata(result)
		})
		return VerifyResult{}, ErrInvalidOrExpiredCode
	case err != nil:
		return VerifyResult{}, e.repoError(ctx, "verify code", err)
	}

	e.metricInc(MetricVerificationSuccess)
	e.emitAudit(ctx, auditEventVerifySuccess, true, a.ID, nil, nil)
	return VerifyResult{Account: a}, nil
}

func verifyFailureMetadata(r verification.Result) map[string]string {
	switch {
	case r.RateLimited:
		return map[string]string{"reason": "attempts_exhausted"}
	case r.Expired:
		return map[string]string{"reason": "expired"}
	case errors.Is(r.Err, verification.ErrMismatch):
		return map[string]string{"reason": "mismatch"}
	case errors.Is(r.Err, verification.ErrNoCode):
		return map[string]string{"reason": "no_code"}
	default:
		return map[string]string{"reason": "not_pending"}
	}
}

// ResendCode issues a fresh verification code with a reset attempt counter
// and mails it.
//
// The result is the same for unknown, already verified and pending
// accounts, and backend failures after the lookup are logged rather than
// returned. Only validation and rate-limit errors reach the caller.
func (e *Engine) ResendCode(ctx context.Context, email string) (CodeResult, error) {
	if err := e.ready(); err != nil {
		return CodeResult{}, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return CodeResult{}, err
	}
	if err := e.allow(ctx, email, rate.ClassResend); err != nil {
		return CodeResult{}, err
	}

	e.metricInc(MetricResendRequest)
	generic := CodeResult{ExpiresAt: e.now().Add(e.codes.TTL())}

	code, _, err := e.codes.Issue()
	if err != nil {
		e.logger.ErrorContext(ctx, "resend code generation failed", slog.Any("error", err))
		return generic, nil
	}

	var issued bool
	a, err := e.mutateAccount(ctx, e.loadByEmail(email), func(a *Account, now time.Time) (bool, error) {
		issued = false
		if account.StateAt(a, now) != account.StateUnverified {
			return false, nil
		}
		if err := account.IssueVerificationCode(a, code, generic.ExpiresAt, now); err != nil {
			return false, nil
		}
		issued = true
		return true, nil
	})
	switch {
	case errors.Is(err, account.ErrNotFound):
		e.emitAudit(ctx, auditEventResendRequest, true, "", nil, nil)
		return generic, nil
	case err != nil:
		_ = e.repoError(ctx, "resend code", err)
		return generic, nil
	}

	e.emitAudit(ctx, auditEventResendRequest, true, a.ID, nil, func() map[string]string {
		if issued {
			return map[string]string{"issued": "true"}
		}
		return map[string]string{"issued": "false"}
	})
	if issued {
		e.metricInc(MetricVerificationCodeIssued)
		e.sendVerificationCode(ctx, a)
	}
	return generic, nil
}

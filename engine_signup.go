package goGate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/goGate/account"
	"github.com/MrEthical07/goGate/auditlog"
	"github.com/MrEthical07/goGate/fingerprint"
	"github.com/MrEthical07/goGate/internal/rate"
	"github.com/MrEthical07/goGate/risk"
)

const maxUsernameAttempts = 5

// Signup scores a registration attempt and, unless it is blocked, creates an
// unverified account and mails its verification code.
//
// Blocked attempts fail with a *BlockedError (errors.Is ErrRiskBlocked)
// carrying only the caller-facing message. Fired indicators are logged and
// recorded in the audit log, never returned in the error. A mail delivery
// failure does not fail the signup; ResendCode recovers from it.
func (e *Engine) Signup(ctx context.Context, req SignupRequest) (SignupResult, error) {
	if err := e.ready(); err != nil {
		return SignupResult{}, err
	}

	ip := req.IP
	if ip == "" {
		ip = ClientIPFromContext(ctx)
	}
	if ip == "" {
		ip = fingerprint.Unknown
	}
	if canonical, ok := fingerprint.Canonicalize(ip); ok {
		ip = canonical
	}
	fp := req.DeviceFingerprint
	if fp == "" {
		fp = DeviceFingerprintFromContext(ctx)
	}
	ctx = WithClientIP(ctx, ip)

	if err := e.allow(ctx, ip, rate.ClassSignup); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.metricInc(MetricSignupRateLimited)
			e.emitAudit(ctx, auditEventSignupRateLimited, false, "", err, nil)
		}
		return SignupResult{}, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if err := e.validateRegistration(registrationInput{Email: email, Password: req.Password, Username: username}); err != nil {
		e.metricInc(MetricSignupInvalid)
		entryEmail := email
		if validateEmail(email) != nil {
			entryEmail = ""
		}
		e.appendAuditLog(ctx, auditlog.Entry{Email: entryEmail, IP: ip, DeviceFingerprint: fp})
		return SignupResult{}, err
	}

	started := time.Now()
	assessment, err := e.scorer.Assess(ctx, email, ip, fp)
	e.metricObserve(MetricRiskAssessLatency, time.Since(started))
	if err != nil {
		e.metricInc(MetricSignupFailure)
		return SignupResult{}, e.repoError(ctx, "risk assess", err)
	}

	entry := auditlog.Entry{
		Email:             email,
		IP:                ip,
		DeviceFingerprint: fp,
		RiskScore:         assessment.Score,
		Action:            string(assessment.Action),
		Indicators:        assessment.IndicatorNames(),
	}
	e.logAssessment(ctx, email, ip, assessment)

	if assessment.Action == risk.ActionBlock {
		e.metricInc(MetricSignupBlocked)
		e.appendAuditLog(ctx, entry)
		e.emitAudit(ctx, auditEventSignupBlocked, false, "", ErrRiskBlocked, func() map[string]string {
			return map[string]string{
				"score":    fmt.Sprint(assessment.Score),
				"severity": string(assessment.Severity),
			}
		})
		return SignupResult{}, &BlockedError{Message: assessment.Message}
	}

	created, err := e.createUnverified(ctx, email, username, req.Password, ip, fp)
	if err != nil {
		e.metricInc(MetricSignupFailure)
		e.appendAuditLog(ctx, entry)
		e.emitAudit(ctx, auditEventSignupFailure, false, "", err, nil)
		return SignupResult{}, err
	}

	entry.Success = true
	e.appendAuditLog(ctx, entry)

	if assessment.Action == risk.ActionWarn {
		e.metricInc(MetricSignupWarned)
		e.emitAudit(ctx, auditEventSignupWarned, true, created.ID, nil, func() map[string]string {
			return map[string]string{"score": fmt.Sprint(assessment.Score), "severity": string(assessment.Severity)}
		})
	} else {
		e.metricInc(MetricSignupAllowed)
		e.emitAudit(ctx, auditEventSignupAllowed, true, created.ID, nil, nil)
	}
	e.metricInc(MetricVerificationCodeIssued)
	e.sendVerificationCode(ctx, created)

	return SignupResult{Account: created, Risk: assessment}, nil
}

func (e *Engine) createUnverified(ctx context.Context, email, username, plain, ip, fp string) (*Account, error) {
	hash, err := e.hasher.Hash(plain)
	if err != nil {
		return nil, e.repoError(ctx, "password hash", err)
	}
	code, expiresAt, err := e.codes.Issue()
	if err != nil {
		return nil, e.repoError(ctx, "issue code", err)
	}

	now := e.now()
	a := &Account{
		ID:                e.newID(),
		Email:             email,
		NormalizedEmail:   risk.NormalizeEmail(email),
		PasswordHash:      hash,
		SignupIP:          ip,
		DeviceFingerprint: fp,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := account.IssueVerificationCode(a, code, expiresAt, now); err != nil {
		return nil, e.repoError(ctx, "issue code", err)
	}
	if err := e.createWithUsername(ctx, a, username); err != nil {
		return nil, err
	}
	return a, nil
}

// createWithUsername inserts a. An explicit username that is taken is a
// validation error; a derived one gains a random suffix until it is free.
func (e *Engine) createWithUsername(ctx context.Context, a *Account, explicit string) error {
	if explicit != "" {
		a.Username = explicit
		err := e.accounts.Create(ctx, a)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, account.ErrExists):
			if _, lookupErr := e.accounts.FindByEmail(ctx, a.Email); lookupErr == nil {
				return ErrAccountExists
			}
			return fieldError("username", "is already taken")
		default:
			return e.repoError(ctx, "create account", err)
		}
	}

	base := usernameFromEmail(a.Email)
	candidate := base
	for i := 0; i < maxUsernameAttempts; i++ {
		if i > 0 {
			suffix, err := usernameSuffix()
			if err != nil {
				return e.repoError(ctx, "username suffix", err)
			}
			candidate = base + "-" + suffix
		}
		_, err := e.accounts.FindByUsername(ctx, candidate)
		if err == nil {
			continue
		}
		if !errors.Is(err, account.ErrNotFound) {
			return e.repoError(ctx, "username lookup", err)
		}

		a.Username = candidate
		err = e.accounts.Create(ctx, a)
		if err == nil {
			return nil
		}
		if !errors.Is(err, account.ErrExists) {
			return e.repoError(ctx, "create account", err)
		}
		if _, lookupErr := e.accounts.FindByEmail(ctx, a.Email); lookupErr == nil {
			return ErrAccountExists
		}
	}
	return e.repoError(ctx, "create account", errors.New("no free username derived from email"))
}

func (e *Engine) sendVerificationCode(ctx context.Context, a *Account) {
	if err := e.mailer.SendVerificationCode(ctx, a.Email, a.Username, a.VerificationCode); err != nil {
		e.metricInc(MetricMailerFailure)
		e.logger.ErrorContext(ctx, "verification mail failed",
			slog.String("account_id", a.ID),
			slog.Any("error", err),
		)
	}
}

func (e *Engine) appendAuditLog(ctx context.Context, entry auditlog.Entry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = e.now()
	}
	if err := e.auditLog.Append(context.WithoutCancel(ctx), entry); err != nil {
		e.logger.ErrorContext(ctx, "signup audit append failed", slog.Any("error", err))
	}
}

func (e *Engine) logAssessment(ctx context.Context, email, ip string, a risk.Assessment) {
	level := slog.LevelDebug
	if a.Action != risk.ActionAllow {
		level = slog.LevelWarn
	}
	e.logger.Log(ctx, level, "signup risk assessment",
		slog.String("email", email),
		slog.String("ip", ip),
		slog.Int("score", a.Score),
		slog.String("action", string(a.Action)),
		slog.String("severity", string(a.Severity)),
		slog.Any("indicators", a.IndicatorNames()),
	)
}

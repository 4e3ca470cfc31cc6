package goGate

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/MrEthical07/goGate/internal/audit"
)

// AuditEvent is one security event emitted by the Engine.
type AuditEvent = audit.Event

// AuditSink receives audit events. Emit may be called from a background
// goroutine.
type AuditSink = audit.Sink

type (
	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
	SlogSink       = audit.SlogSink
)

// NewChannelSink buffers events in a channel read through Events.
func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

// NewJSONWriterSink writes one JSON object per event to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

// NewSlogSink logs events through logger.
func NewSlogSink(logger *slog.Logger) *SlogSink { return audit.NewSlogSink(logger) }

const (
	auditEventSignupAllowed      = "signup_allowed"
	auditEventSignupWarned       = "signup_warned"
	auditEventSignupBlocked      = "signup_blocked"
	auditEventSignupRateLimited  = "signup_rate_limited"
	auditEventSignupFailure      = "signup_failure"
	auditEventVerifySuccess      = "verify_success"
	auditEventVerifyFailure      = "verify_failure"
	auditEventResendRequest      = "resend_request"
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventLoginLocked        = "login_locked"
	auditEventAccountLocked      = "account_locked"
	auditEventPasswordResetReq   = "password_reset_request"
	auditEventPasswordResetDone  = "password_reset_confirm"
	auditEventAccountTrusted     = "account_created_trusted"
	auditEventAccountDeactivated = "account_deactivated"
	auditEventAccountUnlocked    = "account_unlocked"
	auditEventRateLimitTriggered = "rate_limit_triggered"
)

// auditErrorCode maps an engine error onto a stable string for sinks.
func auditErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrRiskBlocked):
		return "risk_blocked"
	case errors.Is(err, ErrInvalidOrExpiredCode):
		return "invalid_code"
	case errors.Is(err, ErrLocked):
		return "account_locked"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountUnverified):
		return "account_unverified"
	case errors.Is(err, ErrAccountExpired):
		return "account_expired"
	case errors.Is(err, ErrAccountDisabled):
		return "account_disabled"
	case errors.Is(err, ErrAccountExists):
		return "duplicate"
	case errors.Is(err, ErrConcurrentUpdate):
		return "concurrent_update"
	case errors.Is(err, ErrRepository):
		return "backend_unavailable"
	default:
		return "internal_error"
	}
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, accountID string, err error, metadata func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}
	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		IP:        ClientIPFromContext(ctx),
		Success:   success,
		Error:     auditErrorCode(err),
	}
	if metadata != nil {
		event.Metadata = metadata()
	}
	e.audit.Emit(ctx, event)
}

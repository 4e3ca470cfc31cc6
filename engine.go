package goGate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/goGate/account"
	"github.com/MrEthical07/goGate/auditlog"
	"github.com/MrEthical07/goGate/internal/audit"
	"github.com/MrEthical07/goGate/internal/rate"
	"github.com/MrEthical07/goGate/internal/verification"
	"github.com/MrEthical07/goGate/jwt"
	"github.com/MrEthical07/goGate/risk"
)

// Engine runs the account-creation gate: signup, code verification,
// authentication with lockout, password reset and operator actions.
//
// Engine is safe for concurrent use. Per-account counter updates are
// serialized through a version check on every Save.
type Engine struct {
	config      Config
	logger      *slog.Logger
	clock       Clock
	accounts    account.Repository
	auditLog    auditlog.Log
	scorer      *risk.Scorer
	codes       *verification.Engine
	resetCodes  *verification.Engine
	limiter     *rate.Limiter
	hasher      PasswordHasher
	dummyHash   string
	mailer      Mailer
	resetMailer PasswordResetMailer
	tokens      *jwt.Manager
	audit       *audit.Dispatcher
	metrics     *Metrics
	newID       func() string
}

// Close drains the audit dispatcher. The Engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) ready() error {
	if e == nil || e.accounts == nil || e.hasher == nil || e.codes == nil {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) now() time.Time {
	return e.clock.Now()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

// repoError logs a backend failure in full and returns the opaque sentinel.
func (e *Engine) repoError(ctx context.Context, op string, err error) error {
	if errors.Is(err, ErrConcurrentUpdate) {
		e.logger.ErrorContext(ctx, "account update retries exhausted", slog.String("op", op))
		return ErrConcurrentUpdate
	}
	e.logger.ErrorContext(ctx, "backend failure", slog.String("op", op), slog.Any("error", err))
	return ErrRepository
}

// allow consumes one request of class for identity.
func (e *Engine) allow(ctx context.Context, identity string, class rate.Class) error {
	ok, err := e.limiter.Allow(ctx, identity, class)
	if err != nil {
		return e.repoError(ctx, "rate limit "+string(class), err)
	}
	if ok {
		return nil
	}
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", ErrRateLimited, func() map[string]string {
		return map[string]string{"class": string(class)}
	})
	return ErrRateLimited
}

// mutation is applied to a freshly loaded account on every attempt. It
// returns whether the account must be saved and the outcome to report once
// the save, if any, committed.
type mutation func(a *Account, now time.Time) (save bool, outcome error)

// mutateAccount loads an account, applies fn and saves it under the version
// check. On a version conflict it reloads and reapplies fn, up to
// Repository.MaxConflictRetries extra times. Load errors are returned as is.
func (e *Engine) mutateAccount(ctx context.Context, load func(context.Context) (*Account, error), fn mutation) (*Account, error) {
	attempts := e.config.Repository.MaxConflictRetries + 1
	for i := 0; i < attempts; i++ {
		a, err := load(ctx)
		if err != nil {
			return nil, err
		}
		save, outcome := fn(a, e.now())
		if !save {
			return a, outcome
		}
		err = e.accounts.Save(ctx, a)
		if err == nil {
			return a, outcome
		}
		if !errors.Is(err, account.ErrVersionConflict) {
			return nil, err
		}
		e.metricInc(MetricConcurrentUpdateRetry)
		e.logger.DebugContext(ctx, "account version conflict", slog.String("account_id", a.ID), slog.Int("attempt", i+1))
	}
	return nil, ErrConcurrentUpdate
}

func (e *Engine) loadByID(id string) func(context.Context) (*Account, error) {
	return func(ctx context.Context) (*Account, error) {
		return e.accounts.FindByID(ctx, id)
	}
}

func (e *Engine) loadByEmail(email string) func(context.Context) (*Account, error) {
	return func(ctx context.Context) (*Account, error) {
		return e.accounts.FindByEmail(ctx, email)
	}
}

// rateIdentity keys limits on the client IP when one is attached, else on
// fallback.
func rateIdentity(ctx context.Context, fallback string) string {
	if ip := ClientIPFromContext(ctx); ip != "" {
		return ip
	}
	return fallback
}

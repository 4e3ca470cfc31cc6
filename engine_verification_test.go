package goGate

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func signupPending(t *testing.T, env *testEnv, email string) (*Account, string) {
	t.Helper()
	res, err := env.engine.Signup(context.Background(), SignupRequest{Email: email, Password: "correct horse battery", IP: env.nextIP()})
	if err != nil {
		t.Fatalf("Signup(%s) failed: %v", email, err)
	}
	return res.Account, env.mailer.lastVerification(t).Code
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestVerifyCodeActivatesOnce(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	a, code := signupPending(t, env, "verify@real.com")

	res, err := env.engine.VerifyCode(ctx, "Verify@Real.com", code)
	if err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}
	if !res.Account.IsActive || !res.Account.EmailVerified {
		t.Fatal("expected active verified account")
	}

	stored := env.stored(t, a.ID)
	if stored.VerificationCode != "" || stored.VerificationCodeExpiresAt != nil || stored.VerificationAttempts != 0 {
		t.Fatalf("expected code state cleared, got %+v", stored)
	}

	if _, err := env.engine.VerifyCode(ctx, "verify@real.com", code); !errors.Is(err, ErrInvalidOrExpiredCode) {
		t.Fatalf("expected second verification to fail, got %v", err)
	}
}

func TestVerifyCodeWrongGuessConsumesAttempt(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	env := newTestEnv(t, cfg)
	ctx := context.Background()
	a, code := signupPending(t, env, "guess@real.com")

	for i := 1; i <= 5; i++ {
		if _, err := env.engine.VerifyCode(ctx, "guess@real.com", wrongCode(code)); !errors.Is(err, ErrInvalidOrExpiredCode) {
			t.Fatalf("attempt %d: expected ErrInvalidOrExpiredCode, got %v", i, err)
		}
		if got := env.stored(t, a.ID).VerificationAttempts; got != i {
			t.Fatalf("attempt %d: expected counter %d, got %d", i, i, got)
		}
	}

	// The budget is spent: the correct code no longer works and the counter
	// stays put.
	if _, err := env.engine.VerifyCode(ctx, "guess@real.com", code); !errors.Is(err, ErrInvalidOrExpiredCode) {
		t.Fatalf("expected exhausted budget to reject correct code, got %v", err)
	}
	if got := env.stored(t, a.ID).VerificationAttempts; got != 5 {
		t.Fatalf("expected counter to stay at 5, got %d", got)
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricVerificationFailure] != 5 || snap.Counters[MetricVerificationAttemptsExceeded] != 1 {
		t.Fatalf("unexpected counters: %v", snap.Counters)
	}
}

func TestVerifyCodeExpired(t *testing.T) {
	env := newTestEnv(t, testConfig())
	_, code := signupPending(t, env, "late@real.com")

	env.clock.Advance(10*time.Minute + time.Second)
	if _, err := env.engine.VerifyCode(context.Background(), "late@real.com", code); !errors.Is(err, ErrInvalidOrExpiredCode) {
		t.Fatalf("expected expired code to fail, got %v", err)
	}
}

func TestVerifyCodeAtExpiryBoundary(t *testing.T) {
	env := newTestEnv(t, testConfig())
	_, code := signupPending(t, env, "edge@real.com")

	env.clock.Advance(10 * time.Minute)
	if _, err := env.engine.VerifyCode(context.Background(), "edge@real.com", code); err != nil {
		t.Fatalf("expected code valid at exactly its expiry, got %v", err)
	}
}

func TestVerifyCodeUnknownEmailIsUndifferentiated(t *testing.T) {
	env := newTestEnv(t, testConfig())

	_, err := env.engine.VerifyCode(context.Background(), "ghost@nowhere.test", "123456")
	if !errors.Is(err, ErrInvalidOrExpiredCode) {
		t.Fatalf("expected ErrInvalidOrExpiredCode, got %v", err)
	}
	if _, err := env.engine.VerifyCode(context.Background(), "", ""); !errors.Is(err, ErrInvalidOrExpiredCode) {
		t.Fatalf("expected ErrInvalidOrExpiredCode for empty input, got %v", err)
	}
}

func TestVerifyCodeRetriesVersionConflict(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	accounts := &conflictingAccounts{Accounts: newMemoryAccounts()}
	env := newTestEnv(t, cfg, func(b *Builder) { b.WithRepository(accounts) })
	env.accounts = accounts.Accounts

	a, code := signupPending(t, env, "race@real.com")
	accounts.mu.Lock()
	accounts.conflicts = 2
	accounts.mu.Unlock()

	if _, err := env.engine.VerifyCode(context.Background(), "race@real.com", code); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if !env.stored(t, a.ID).IsActive {
		t.Fatal("expected account active after retry")
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricConcurrentUpdateRetry]; got != 2 {
		t.Fatalf("expected 2 retries, got %d", got)
	}
}

func TestVerifyCodeRetriesExhausted(t *testing.T) {
	accounts := &conflictingAccounts{Accounts: newMemoryAccounts()}
	env := newTestEnv(t, testConfig(), func(b *Builder) { b.WithRepository(accounts) })
	env.accounts = accounts.Accounts

	a, code := signupPending(t, env, "stuck@real.com")
	accounts.mu.Lock()
	accounts.conflicts = 100
	accounts.mu.Unlock()

	_, err := env.engine.VerifyCode(context.Background(), "stuck@real.com", code)
	if !errors.Is(err, ErrConcurrentUpdate) || !errors.Is(err, ErrRepository) {
		t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
	}
	if env.stored(t, a.ID).IsActive {
		t.Fatal("account must not change when no save committed")
	}
	if want := testConfig().Repository.MaxConflictRetries + 1; accounts.saves != want {
		t.Fatalf("expected %d save attempts, got %d", want, accounts.saves)
	}
}

func TestResendCodeIsEnumerationSafe(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	signupPending(t, env, "real@real.com")
	verified := env.signupAndVerify(t, "done@real.com", "correct horse battery")
	before := env.mailer.verificationCount()

	ghost, err := env.engine.ResendCode(ctx, "ghost@nowhere.test")
	if err != nil {
		t.Fatalf("ResendCode(ghost) failed: %v", err)
	}
	pending, err := env.engine.ResendCode(ctx, "real@real.com")
	if err != nil {
		t.Fatalf("ResendCode(pending) failed: %v", err)
	}
	done, err := env.engine.ResendCode(ctx, verified.Email)
	if err != nil {
		t.Fatalf("ResendCode(verified) failed: %v", err)
	}

	if !reflect.DeepEqual(ghost, pending) || !reflect.DeepEqual(pending, done) {
		t.Fatalf("responses differ: ghost=%+v pending=%+v verified=%+v", ghost, pending, done)
	}
	if got := env.mailer.verificationCount() - before; got != 1 {
		t.Fatalf("expected exactly one mail for the pending account, got %d", got)
	}
}

func TestResendCodeResetsAttemptsAndReplacesCode(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	a, oldCode := signupPending(t, env, "again@real.com")

	for i := 0; i < 5; i++ {
		_, _ = env.engine.VerifyCode(ctx, "again@real.com", wrongCode(oldCode))
	}
	env.clock.Advance(time.Minute)

	res, err := env.engine.ResendCode(ctx, "again@real.com")
	if err != nil {
		t.Fatalf("ResendCode failed: %v", err)
	}
	stored := env.stored(t, a.ID)
	if stored.VerificationAttempts != 0 {
		t.Fatalf("expected attempts reset, got %d", stored.VerificationAttempts)
	}
	if !stored.VerificationCodeExpiresAt.Equal(res.ExpiresAt) {
		t.Fatalf("expected stored expiry %v to match result %v", *stored.VerificationCodeExpiresAt, res.ExpiresAt)
	}

	newCode := env.mailer.lastVerification(t).Code
	if newCode != stored.VerificationCode {
		t.Fatal("mailed code does not match stored code")
	}
	if _, err := env.engine.VerifyCode(ctx, "again@real.com", newCode); err != nil {
		t.Fatalf("VerifyCode with resent code failed: %v", err)
	}
}

func TestResendCodeValidatesAndRateLimits(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Resend = RateLimit{Window: 15 * time.Minute, Max: 1}
	env := newTestEnv(t, cfg)
	ctx := context.Background()

	if _, err := env.engine.ResendCode(ctx, "nope"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := env.engine.ResendCode(ctx, "limit@real.com"); err != nil {
		t.Fatalf("first ResendCode failed: %v", err)
	}
	if _, err := env.engine.ResendCode(ctx, "LIMIT@real.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if _, err := env.engine.ResendCode(ctx, "other@real.com"); err != nil {
		t.Fatalf("other email should pass, got %v", err)
	}
}

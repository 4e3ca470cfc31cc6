package goGate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (s *recordingSink) Emit(_ context.Context, event AuditEvent) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func (s *recordingSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.EventType
	}
	return out
}

func (s *recordingSink) find(eventType string) (AuditEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.EventType == eventType {
			return e, true
		}
	}
	return AuditEvent{}, false
}

func syncAuditConfig() Config {
	cfg := testConfig()
	cfg.Audit = AuditConfig{Enabled: true, BufferSize: 0}
	return cfg
}

func TestAuditEventsForSignupAndLogin(t *testing.T) {
	sink := &recordingSink{}
	env := newTestEnv(t, syncAuditConfig(), func(b *Builder) { b.WithAuditSink(sink) })
	ctx := WithClientIP(context.Background(), "7.7.7.7")

	a := env.signupAndVerify(t, "events@real.com", testPassword)
	_, _ = env.engine.Authenticate(ctx, a.Username, "wrong password!")
	if _, err := env.engine.Authenticate(ctx, a.Username, testPassword); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	want := []string{"signup_allowed", "verify_success", "login_failure", "login_success"}
	if got := sink.types(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected events %v, got %v", want, got)
	}

	failure, _ := sink.find("login_failure")
	if failure.Success || failure.Error != "invalid_credentials" || failure.AccountID != a.ID || failure.IP != "7.7.7.7" {
		t.Fatalf("unexpected login_failure event: %+v", failure)
	}
}

func TestAuditBlockedSignupRecordsScore(t *testing.T) {
	sink := &recordingSink{}
	env := newTestEnv(t, syncAuditConfig(), func(b *Builder) { b.WithAuditSink(sink) })
	ctx := context.Background()

	if _, err := env.engine.Signup(ctx, SignupRequest{Email: "twice@real.com", Password: testPassword, IP: "8.8.8.8"}); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if _, err := env.engine.Signup(ctx, SignupRequest{Email: "twice@real.com", Password: testPassword, IP: "8.8.8.8"}); !errors.Is(err, ErrRiskBlocked) {
		t.Fatalf("expected ErrRiskBlocked, got %v", err)
	}

	blocked, ok := sink.find("signup_blocked")
	if !ok {
		t.Fatalf("expected signup_blocked event, got %v", sink.types())
	}
	if blocked.Error != "risk_blocked" || blocked.Metadata["score"] != "150" || blocked.Metadata["severity"] != "critical" {
		t.Fatalf("unexpected blocked event: %+v", blocked)
	}
}

func TestAuditLockAndRateLimitEvents(t *testing.T) {
	cfg := syncAuditConfig()
	cfg.RateLimit.Resend = RateLimit{Window: time.Minute, Max: 1}
	sink := &recordingSink{}
	env := newTestEnv(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })
	ctx := context.Background()
	a := env.signupAndVerify(t, "alarm@real.com", testPassword)

	for i := 0; i < 5; i++ {
		_, _ = env.engine.Authenticate(ctx, a.Username, "wrong password!")
	}
	if _, ok := sink.find("account_locked"); !ok {
		t.Fatalf("expected account_locked event, got %v", sink.types())
	}

	_, _ = env.engine.ResendCode(ctx, "alarm@real.com")
	_, _ = env.engine.ResendCode(ctx, "alarm@real.com")
	limited, ok := sink.find("rate_limit_triggered")
	if !ok || limited.Metadata["class"] != "resend" {
		t.Fatalf("expected rate_limit_triggered for resend, got %+v", limited)
	}
}

func TestAuditDisabledEmitsNothing(t *testing.T) {
	sink := &recordingSink{}
	env := newTestEnv(t, testConfig(), func(b *Builder) { b.WithAuditSink(sink) })

	env.signupAndVerify(t, "quiet@real.com", testPassword)
	if got := sink.types(); len(got) != 0 {
		t.Fatalf("expected no events, got %v", got)
	}
	if env.engine.AuditDropped() != 0 {
		t.Fatal("expected zero drops")
	}
}

func TestAuditJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	env := newTestEnv(t, syncAuditConfig(), func(b *Builder) { b.WithAuditSink(NewJSONWriterSink(&buf)) })
	env.signupAndVerify(t, "json@real.com", testPassword)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d: %q", len(lines), buf.String())
	}
	var event AuditEvent
	if err := json.Unmarshal([]byte(lines[0]), &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.EventType != "signup_allowed" || !event.Success {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestAuditAsyncCloseDrains(t *testing.T) {
	cfg := testConfig()
	cfg.Audit = AuditConfig{Enabled: true, BufferSize: 64, DropIfFull: false}
	sink := NewChannelSink(64)
	env := newTestEnv(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })

	env.signupAndVerify(t, "async@real.com", testPassword)
	env.engine.Close()

	count := 0
	for {
		select {
		case <-sink.Events():
			count++
			continue
		default:
		}
		break
	}
	if count != 2 {
		t.Fatalf("expected 2 drained events, got %d", count)
	}
}

func TestAuditErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fieldError("email", "bad"), "validation"},
		{&LockedError{}, "account_locked"},
		{&BlockedError{Message: "x"}, "risk_blocked"},
		{ErrConcurrentUpdate, "concurrent_update"},
		{ErrRepository, "backend_unavailable"},
		{errBoom, "internal_error"},
	}
	for _, tc := range tests {
		if got := auditErrorCode(tc.err); got != tc.want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

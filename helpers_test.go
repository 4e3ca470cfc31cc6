package goGate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goGate/account"
	"github.com/MrEthical07/goGate/store/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sentCode struct {
	Email    string
	Username string
	Code     string
}

type captureMailer struct {
	mu       sync.Mutex
	codes    []sentCode
	resets   []sentCode
	failWith error
}

func (m *captureMailer) SendVerificationCode(_ context.Context, email, username, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes = append(m.codes, sentCode{Email: email, Username: username, Code: code})
	return m.failWith
}

func (m *captureMailer) SendPasswordResetCode(_ context.Context, email, username, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, sentCode{Email: email, Username: username, Code: code})
	return m.failWith
}

func (m *captureMailer) verificationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.codes)
}

func (m *captureMailer) lastVerification(t *testing.T) sentCode {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.codes) == 0 {
		t.Fatal("expected a verification mail")
	}
	return m.codes[len(m.codes)-1]
}

func (m *captureMailer) resetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.resets)
}

func (m *captureMailer) lastReset(t *testing.T) sentCode {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.resets) == 0 {
		t.Fatal("expected a password reset mail")
	}
	return m.resets[len(m.resets)-1]
}

type testEnv struct {
	engine   *Engine
	accounts *memory.Accounts
	auditLog *memory.AuditLog
	mailer   *captureMailer
	clock    *fakeClock
	ipSeq    int
}

// nextIP returns a fresh public address so that IP reuse stays quiet.
func (env *testEnv) nextIP() string {
	env.ipSeq++
	return fmt.Sprintf("8.8.%d.%d", env.ipSeq/200, env.ipSeq%200+1)
}

// testConfig keeps Argon2 cheap and rate limits out of the way.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.RateLimit = RateLimitConfig{RedisPrefix: "gg:rl:"}
	return cfg
}

func newTestEnv(t *testing.T, cfg Config, opts ...func(*Builder)) *testEnv {
	t.Helper()

	env := &testEnv{
		accounts: memory.NewAccounts(),
		auditLog: memory.NewAuditLog(),
		mailer:   &captureMailer{},
		clock:    newFakeClock(),
	}
	b := New().
		WithConfig(cfg).
		WithRepository(env.accounts).
		WithAuditLog(env.auditLog).
		WithMailer(env.mailer).
		WithPasswordResetMailer(env.mailer).
		WithClock(env.clock)
	for _, opt := range opts {
		opt(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

// signupAndVerify creates an active account and returns it.
func (env *testEnv) signupAndVerify(t *testing.T, email, plain string) *Account {
	t.Helper()
	ctx := context.Background()

	res, err := env.engine.Signup(ctx, SignupRequest{Email: email, Password: plain, IP: env.nextIP()})
	if err != nil {
		t.Fatalf("Signup(%s) failed: %v", email, err)
	}
	code := env.mailer.lastVerification(t).Code
	if _, err := env.engine.VerifyCode(ctx, email, code); err != nil {
		t.Fatalf("VerifyCode(%s) failed: %v", email, err)
	}
	return res.Account
}

func (env *testEnv) stored(t *testing.T, id string) *Account {
	t.Helper()
	a, err := env.accounts.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID(%s) failed: %v", id, err)
	}
	return a
}

var errBoom = errors.New("boom")

// failingAccounts fails every call with err.
type failingAccounts struct {
	err error
}

func (f *failingAccounts) FindByID(context.Context, string) (*Account, error) {
	return nil, f.err
}

func (f *failingAccounts) FindByEmail(context.Context, string) (*Account, error) {
	return nil, f.err
}

func (f *failingAccounts) FindByUsername(context.Context, string) (*Account, error) {
	return nil, f.err
}

func (f *failingAccounts) FindEmailVariants(context.Context, string) ([]Account, error) {
	return nil, f.err
}

func (f *failingAccounts) FindBySignupIP(context.Context, string, time.Time) ([]Account, error) {
	return nil, f.err
}

func (f *failingAccounts) FindByDeviceFingerprint(context.Context, string, time.Time) ([]Account, error) {
	return nil, f.err
}

func (f *failingAccounts) Create(context.Context, *Account) error {
	return f.err
}

func (f *failingAccounts) Save(context.Context, *Account) error {
	return f.err
}

// conflictingAccounts wraps a repository and fails the next n Saves with a
// version conflict.
type conflictingAccounts struct {
	*memory.Accounts
	mu        sync.Mutex
	conflicts int
	saves     int
}

func (c *conflictingAccounts) Save(ctx context.Context, a *Account) error {
	c.mu.Lock()
	c.saves++
	if c.conflicts > 0 {
		c.conflicts--
		c.mu.Unlock()
		return account.ErrVersionConflict
	}
	c.mu.Unlock()
	return c.Accounts.Save(ctx, a)
}

func newMemoryAccounts() *memory.Accounts {
	return memory.NewAccounts()
}

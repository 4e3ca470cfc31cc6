package goGate

import (
	"log/slog"

	"github.com/MrEthical07/goGate/account"
	"github.com/MrEthical07/goGate/auditlog"
	"github.com/MrEthical07/goGate/internal/audit"
	"github.com/MrEthical07/goGate/internal/rate"
	"github.com/MrEthical07/goGate/internal/verification"
	"github.com/MrEthical07/goGate/jwt"
	"github.com/MrEthical07/goGate/password"
	"github.com/MrEthical07/goGate/risk"
	"github.com/MrEthical07/goGate/store/memory"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. Configure it during initialization, call
// Build once, and discard it.
type Builder struct {
	config Config

	accounts    account.Repository
	auditLog    auditlog.Log
	mailer      Mailer
	resetMailer PasswordResetMailer
	hasher      PasswordHasher
	redis       redis.UniversalClient
	rateStore   RateLimitStore
	logger      *slog.Logger
	clock       Clock
	auditSink   AuditSink
	newID       func() string

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is deep-copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRepository sets the account store. Required.
func (b *Builder) WithRepository(repo account.Repository) *Builder {
	b.accounts = repo
	return b
}

// WithAuditLog sets the signup audit log. Defaults to an in-memory log.
func (b *Builder) WithAuditLog(log auditlog.Log) *Builder {
	b.auditLog = log
	return b
}

// WithMailer sets the verification-code mailer. Required.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithPasswordResetMailer enables RequestPasswordReset and ResetPassword.
func (b *Builder) WithPasswordResetMailer(m PasswordResetMailer) *Builder {
	b.resetMailer = m
	return b
}

// WithHasher overrides the hasher derived from Config.Password.
func (b *Builder) WithHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

// WithRedis keeps rate-limit windows in Redis so that limits hold across
// processes.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRateLimitStore sets a custom window store. It takes precedence over
// WithRedis.
func (b *Builder) WithRateLimitStore(store RateLimitStore) *Builder {
	b.rateStore = store
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithClock(clock Clock) *Builder {
	b.clock = clock
	return b
}

// WithAuditSink sets the security-event sink. Events flow only when
// Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithIDGenerator overrides account ID generation. Defaults to UUIDv4.
func (b *Builder) WithIDGenerator(fn func() string) *Builder {
	b.newID = fn
	return b
}

// Build validates the configuration and returns the Engine. A Builder can
// be built only once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.accounts == nil {
		return nil, ErrRepositoryRequired
	}
	if b.mailer == nil {
		return nil, ErrMailerRequired
	}

	clock := b.clock
	if clock == nil {
		clock = systemClock{}
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	newID := b.newID
	if newID == nil {
		newID = uuid.NewString
	}
	auditLog := b.auditLog
	if auditLog == nil {
		auditLog = memory.NewAuditLog()
	}

	// -------- PASSWORD HASHER --------
	hasher := b.hasher
	if hasher == nil {
		h, err := newHasher(cfg.Password)
		if err != nil {
			return nil, err
		}
		hasher = h
	}
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}

	// -------- CODES --------
	codes, err := verification.New(verification.Config{
		Digits:      cfg.Verification.Digits,
		TTL:         cfg.Verification.TTL,
		MaxAttempts: cfg.Verification.MaxAttempts,
	}, verification.WithClock(clock.Now))
	if err != nil {
		return nil, err
	}
	resetCodes, err := verification.New(verification.Config{
		Digits:      cfg.Verification.Digits,
		TTL:         cfg.Verification.ResetTTL,
		MaxAttempts: cfg.Verification.MaxAttempts,
	}, verification.WithClock(clock.Now))
	if err != nil {
		return nil, err
	}

	// -------- RATE LIMITER --------
	var store rate.Store
	switch {
	case b.rateStore != nil:
		store = b.rateStore
	case b.redis != nil:
		store = rate.NewRedisStore(b.redis, cfg.RateLimit.RedisPrefix, clock.Now)
	default:
		store = rate.NewMemoryStore(clock.Now)
	}
	limiter := rate.New(store, map[rate.Class]rate.Limit{
		rate.ClassSignup:         rate.Limit(cfg.RateLimit.Signup),
		rate.ClassVerify:         rate.Limit(cfg.RateLimit.Verify),
		rate.ClassResend:         rate.Limit(cfg.RateLimit.Resend),
		rate.ClassLogin:          rate.Limit(cfg.RateLimit.Login),
		rate.ClassForgotPassword: rate.Limit(cfg.RateLimit.ForgotPassword),
	})

	// -------- TOKENS --------
	var tokens *jwt.Manager
	if cfg.Token.Enabled {
		tokens, err = jwt.NewManager(jwt.Config{
			AccessTTL:     cfg.Token.AccessTTL,
			SigningMethod: jwt.SigningMethod(cfg.Token.SigningMethod),
			PrivateKey:    cloneBytes(cfg.Token.PrivateKey),
			PublicKey:     cloneBytes(cfg.Token.PublicKey),
			Issuer:        cfg.Token.Issuer,
			Audience:      cfg.Token.Audience,
			Leeway:        cfg.Token.Leeway,
			KeyID:         cfg.Token.KeyID,
			VerifyKeys:    cfg.Token.VerifyKeys,
			Now:           clock.Now,
		})
		if err != nil {
			return nil, err
		}
	}

	engine := &Engine{
		config:      cfg,
		logger:      logger,
		clock:       clock,
		accounts:    b.accounts,
		auditLog:    auditLog,
		scorer:      risk.NewScorer(cfg.Risk, b.accounts, auditLog, clock.Now),
		codes:       codes,
		resetCodes:  resetCodes,
		limiter:     limiter,
		hasher:      hasher,
		dummyHash:   dummyHash,
		mailer:      b.mailer,
		resetMailer: b.resetMailer,
		tokens:      tokens,
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		newID:   newID,
	}

	b.built = true

	return engine, nil
}

func newHasher(cfg PasswordConfig) (PasswordHasher, error) {
	policy := password.Policy{MinLength: cfg.MinLength, MaxLength: cfg.MaxLength}
	bc, err := password.NewBcrypt(cfg.BcryptCost, policy)
	if err != nil {
		return nil, err
	}
	if cfg.Algorithm == "bcrypt" {
		return bc, nil
	}
	argon, err := password.NewArgon2(password.Config{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
		Policy:      policy,
	})
	if err != nil {
		return nil, err
	}
	return password.NewAuto(argon, bc), nil
}

package goGate

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goGate/password"
	"github.com/MrEthical07/goGate/risk"
)

// Config is the complete Engine configuration. Start from DefaultConfig and
// override fields; Build validates and deep-copies it.
type Config struct {
	Risk         risk.Config
	Verification VerificationConfig
	Lockout      LockoutConfig
	RateLimit    RateLimitConfig
	Password     PasswordConfig
	Token        TokenConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
	Repository   RepositoryConfig
}

/*
====================================
VERIFICATION CONFIG
====================================
*/

// VerificationConfig shapes email-verification and password-reset codes.
// Both code kinds share Digits and MaxAttempts.
type VerificationConfig struct {
	Digits      int
	TTL         time.Duration
	MaxAttempts int
	ResetTTL    time.Duration
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig locks an account for Duration once Threshold consecutive
// password failures accumulate.
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimit is a sliding-window ceiling of Max requests per Window. A zero
// Max disables the class.
type RateLimit struct {
	Window time.Duration
	Max    int
}

// RateLimitConfig holds one limit per endpoint class. RedisPrefix applies
// only when the engine is built WithRedis.
type RateLimitConfig struct {
	Signup         RateLimit
	Verify         RateLimit
	Resend         RateLimit
	Login          RateLimit
	ForgotPassword RateLimit
	RedisPrefix    string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the default hasher and the password length policy.
// Lengths are in bytes.
type PasswordConfig struct {
	Algorithm      string // "argon2id" (default) or "bcrypt"
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	BcryptCost     int
	MinLength      int
	MaxLength      int
	UpgradeOnLogin bool
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig enables access-token issuance on successful Authenticate.
type TokenConfig struct {
	Enabled       bool
	AccessTTL     time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte // kid -> key, for rotation
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the security-event dispatcher. A zero BufferSize
// delivers events synchronously.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
REPOSITORY CONFIG
====================================
*/

// RepositoryConfig bounds how often an account write is retried after a
// version conflict.
type RepositoryConfig struct {
	MaxConflictRetries int
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Risk: risk.DefaultConfig(),
		Verification: VerificationConfig{
			Digits:      6,
			TTL:         10 * time.Minute,
			MaxAttempts: 5,
			ResetTTL:    15 * time.Minute,
		},
		Lockout: LockoutConfig{
			Threshold: 5,
			Duration:  30 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Signup:         RateLimit{Window: time.Hour, Max: 5},
			Verify:         RateLimit{Window: 15 * time.Minute, Max: 10},
			Resend:         RateLimit{Window: 15 * time.Minute, Max: 3},
			Login:          RateLimit{Window: 15 * time.Minute, Max: 10},
			ForgotPassword: RateLimit{Window: time.Hour, Max: 3},
			RedisPrefix:    "gg:rl:",
		},
		Password: PasswordConfig{
			Algorithm:      "argon2id",
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			BcryptCost:     12,
			MinLength:      password.MinLength,
			MaxLength:      password.MaxLength,
			UpgradeOnLogin: true,
		},
		Token: TokenConfig{
			Enabled:       false,
			AccessTTL:     15 * time.Minute,
			SigningMethod: "ed25519",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Repository: RepositoryConfig{
			MaxConflictRetries: 3,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Risk.ExtraDisposableDomains = append([]string(nil), cfg.Risk.ExtraDisposableDomains...)
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	if cfg.Token.VerifyKeys != nil {
		out.Token.VerifyKeys = make(map[string][]byte, len(cfg.Token.VerifyKeys))
		for kid, key := range cfg.Token.VerifyKeys {
			out.Token.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if err := c.Risk.Validate(); err != nil {
		return err
	}

	// Verification
	if c.Verification.Digits < 4 || c.Verification.Digits > 10 {
		return errors.New("Verification Digits must be between 4 and 10")
	}
	if c.Verification.TTL <= 0 {
		return errors.New("Verification TTL must be > 0")
	}
	if c.Verification.ResetTTL <= 0 {
		return errors.New("Verification ResetTTL must be > 0")
	}
	if c.Verification.MaxAttempts <= 0 {
		return errors.New("Verification MaxAttempts must be > 0")
	}

	// Lockout
	if c.Lockout.Threshold <= 0 {
		return errors.New("Lockout Threshold must be > 0")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("Lockout Duration must be > 0")
	}

	// Rate limits
	for name, l := range map[string]RateLimit{
		"Signup":         c.RateLimit.Signup,
		"Verify":         c.RateLimit.Verify,
		"Resend":         c.RateLimit.Resend,
		"Login":          c.RateLimit.Login,
		"ForgotPassword": c.RateLimit.ForgotPassword,
	} {
		if l.Max < 0 {
			return errors.New("RateLimit " + name + " Max must be >= 0")
		}
		if l.Max > 0 && l.Window <= 0 {
			return errors.New("RateLimit " + name + " Window must be > 0 when Max is set")
		}
	}

	// Password
	switch c.Password.Algorithm {
	case "argon2id":
		if c.Password.Memory < 8*1024 {
			return errors.New("Password Memory must be >= 8192 KB")
		}
		if c.Password.Time < 1 {
			return errors.New("Password Time must be >= 1")
		}
		if c.Password.Parallelism < 1 {
			return errors.New("Password Parallelism must be >= 1")
		}
		if c.Password.SaltLength < 16 {
			return errors.New("Password SaltLength must be >= 16")
		}
		if c.Password.KeyLength < 16 {
			return errors.New("Password KeyLength must be >= 16")
		}
	case "bcrypt":
		if c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31 {
			return errors.New("Password BcryptCost must be between 4 and 31")
		}
		if c.Password.MaxLength > password.BcryptMaxLength {
			return errors.New("Password MaxLength must be <= 72 with bcrypt")
		}
	default:
		return errors.New("Password Algorithm must be 'argon2id' or 'bcrypt'")
	}
	if c.Password.MinLength < password.MinLength {
		return errors.New("Password MinLength must be >= 10")
	}
	if c.Password.MaxLength > password.MaxLength || c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be between MinLength and 1024")
	}

	// Token
	if c.Token.Enabled {
		if c.Token.AccessTTL <= 0 {
			return errors.New("Token AccessTTL must be > 0")
		}
		switch c.Token.SigningMethod {
		case "ed25519":
			if len(c.Token.PrivateKey) == 0 || len(c.Token.PublicKey) == 0 {
				return errors.New("ed25519 requires PrivateKey and PublicKey")
			}
		case "hs256":
			if len(c.Token.PrivateKey) < 32 {
				return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
			}
		default:
			return errors.New("unsupported Token signing method")
		}
		if c.Token.Audience != "" && strings.TrimSpace(c.Token.Audience) == "" {
			return errors.New("Token Audience must not be blank")
		}
		if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
			return errors.New("Token Leeway must be between 0 and 2m")
		}
	}

	// Audit
	if c.Audit.BufferSize < 0 {
		return errors.New("Audit BufferSize must be >= 0")
	}

	// Repository
	if c.Repository.MaxConflictRetries < 0 {
		return errors.New("Repository MaxConflictRetries must be >= 0")
	}

	return nil
}

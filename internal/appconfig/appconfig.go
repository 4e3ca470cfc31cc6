// Package appconfig loads process-level settings for the goGate binaries
// from an optional YAML file and GOGATE_* environment variables.
package appconfig

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// GOGATE_POSTGRES_DSN or GOGATE_RATE_LIMIT_SIGNUP_MAX.
const EnvPrefix = "GOGATE"

type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type HTTPConfig struct {
	Addr        string `mapstructure:"addr"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type limitFile struct {
	Window time.Duration `mapstructure:"window"`
	Max    int           `mapstructure:"max"`
}

type fileConfig struct {
	LogLevel string         `mapstructure:"log_level"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`

	Verification struct {
		Digits      int           `mapstructure:"digits"`
		TTL         time.Duration `mapstructure:"ttl"`
		ResetTTL    time.Duration `mapstructure:"reset_ttl"`
		MaxAttempts int           `mapstructure:"max_attempts"`
	} `mapstructure:"verification"`

	Lockout struct {
		Threshold int           `mapstructure:"threshold"`
		Duration  time.Duration `mapstructure:"duration"`
	} `mapstructure:"lockout"`

	RateLimit struct {
		Signup         limitFile `mapstructure:"signup"`
		Verify         limitFile `mapstructure:"verify"`
		Resend         limitFile `mapstructure:"resend"`
		Login          limitFile `mapstructure:"login"`
		ForgotPassword limitFile `mapstructure:"forgot_password"`
		RedisPrefix    string    `mapstructure:"redis_prefix"`
	} `mapstructure:"rate_limit"`

	Risk struct {
		CooldownWindow  time.Duration `mapstructure:"cooldown_window"`
		VolumeThreshold int           `mapstructure:"volume_threshold"`
		ReuseCap        int           `mapstructure:"reuse_cap"`
		ExtraDomains    []string      `mapstructure:"extra_disposable_domains"`
	} `mapstructure:"risk"`

	Audit struct {
		Enabled    bool `mapstructure:"enabled"`
		BufferSize int  `mapstructure:"buffer_size"`
	} `mapstructure:"audit"`

	Metrics struct {
		Enabled    bool `mapstructure:"enabled"`
		Histograms bool `mapstructure:"histograms"`
	} `mapstructure:"metrics"`
}

// Config is the resolved process configuration.
type Config struct {
	LogLevel slog.Level
	HTTP     HTTPConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Gate     goGate.Config
}

// Load reads path (config.yaml when empty) if it exists, applies GOGATE_*
// overrides and returns a validated Config. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path == "" {
		path = "config.yaml"
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	level, err := parseLevel(fc.LogLevel)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel: level,
		HTTP:     fc.HTTP,
		Postgres: fc.Postgres,
		Redis:    fc.Redis,
		Kafka:    fc.Kafka,
		Gate:     gateConfig(fc),
	}
	if err := cfg.Gate.Validate(); err != nil {
		return nil, fmt.Errorf("gate config: %w", err)
	}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic == "" {
		return nil, errors.New("kafka topic required when brokers are set")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := goGate.DefaultConfig()

	v.SetDefault("log_level", "info")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.metrics_path", "/metrics")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", "30m")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "gogate.mail")

	v.SetDefault("verification.digits", d.Verification.Digits)
	v.SetDefault("verification.ttl", d.Verification.TTL)
	v.SetDefault("verification.reset_ttl", d.Verification.ResetTTL)
	v.SetDefault("verification.max_attempts", d.Verification.MaxAttempts)
	v.SetDefault("lockout.threshold", d.Lockout.Threshold)
	v.SetDefault("lockout.duration", d.Lockout.Duration)

	limits := map[string]goGate.RateLimit{
		"signup":          d.RateLimit.Signup,
		"verify":          d.RateLimit.Verify,
		"resend":          d.RateLimit.Resend,
		"login":           d.RateLimit.Login,
		"forgot_password": d.RateLimit.ForgotPassword,
	}
	for name, l := range limits {
		v.SetDefault("rate_limit."+name+".window", l.Window)
		v.SetDefault("rate_limit."+name+".max", l.Max)
	}
	v.SetDefault("rate_limit.redis_prefix", d.RateLimit.RedisPrefix)

	v.SetDefault("risk.cooldown_window", d.Risk.CooldownWindow)
	v.SetDefault("risk.volume_threshold", d.Risk.VolumeThreshold)
	v.SetDefault("risk.reuse_cap", d.Risk.ReuseCap)
	v.SetDefault("risk.extra_disposable_domains", []string{})

	v.SetDefault("audit.enabled", d.Audit.Enabled)
	v.SetDefault("audit.buffer_size", d.Audit.BufferSize)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.histograms", d.Metrics.EnableLatencyHistograms)
}

func gateConfig(fc fileConfig) goGate.Config {
	cfg := goGate.DefaultConfig()

	cfg.Verification.Digits = fc.Verification.Digits
	cfg.Verification.TTL = fc.Verification.TTL
	cfg.Verification.ResetTTL = fc.Verification.ResetTTL
	cfg.Verification.MaxAttempts = fc.Verification.MaxAttempts

	cfg.Lockout.Threshold = fc.Lockout.Threshold
	cfg.Lockout.Duration = fc.Lockout.Duration

	rl := fc.RateLimit
	cfg.RateLimit.Signup = goGate.RateLimit(rl.Signup)
	cfg.RateLimit.Verify = goGate.RateLimit(rl.Verify)
	cfg.RateLimit.Resend = goGate.RateLimit(rl.Resend)
	cfg.RateLimit.Login = goGate.RateLimit(rl.Login)
	cfg.RateLimit.ForgotPassword = goGate.RateLimit(rl.ForgotPassword)
	cfg.RateLimit.RedisPrefix = rl.RedisPrefix

	cfg.Risk.CooldownWindow = fc.Risk.CooldownWindow
	cfg.Risk.VolumeThreshold = fc.Risk.VolumeThreshold
	cfg.Risk.ReuseCap = fc.Risk.ReuseCap
	cfg.Risk.ExtraDisposableDomains = fc.Risk.ExtraDomains

	cfg.Audit.Enabled = fc.Audit.Enabled
	cfg.Audit.BufferSize = fc.Audit.BufferSize
	cfg.Metrics.Enabled = fc.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = fc.Metrics.Histograms
	return cfg
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// NewLogger returns a JSON slog logger at the configured level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: c.LogLevel}))
}

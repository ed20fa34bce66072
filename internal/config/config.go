// Package config loads dualauthd process configuration.
//
// Sources are merged in increasing precedence: built-in defaults, an
// optional YAML file, command-line flags, then the environment variables
// SECRET_KEY, JWT_ALGORITHM and JWT_EXPIRATION_TIME (whole hours).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/MrEthical07/dualauth"
)

// Session backends accepted by the process. redis-embedded runs an
// in-process Redis for local development.
const (
	SessionBackendMemory        = dualauth.SessionBackendMemory
	SessionBackendRedis         = dualauth.SessionBackendRedis
	SessionBackendRedisEmbedded = "redis-embedded"
)

// Credential backends accepted by the process.
const (
	CredentialsMemory   = "memory"
	CredentialsPostgres = "postgres"
)

// Environment variables read last.
const (
	EnvSecretKey          = "SECRET_KEY"
	EnvJWTAlgorithm       = "JWT_ALGORITHM"
	EnvJWTExpirationHours = "JWT_EXPIRATION_TIME"
)

type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Log         LogConfig         `koanf:"log"`
	JWT         JWTConfig         `koanf:"jwt"`
	Session     SessionConfig     `koanf:"session"`
	Credentials CredentialsConfig `koanf:"credentials"`
	Password    PasswordConfig    `koanf:"password"`
	Audit       AuditConfig       `koanf:"audit"`
	Metrics     MetricsConfig     `koanf:"metrics"`
	Throttle    ThrottleConfig    `koanf:"throttle"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

type JWTConfig struct {
	SigningKey string        `koanf:"signing_key"`
	Algorithm  string        `koanf:"algorithm"`
	TTL        time.Duration `koanf:"ttl"`
	Issuer     string        `koanf:"issuer"`
}

type SessionConfig struct {
	Backend          string        `koanf:"backend"`
	TTL              time.Duration `koanf:"ttl"`
	RedisAddr        string        `koanf:"redis_addr"`
	RedisPrefix      string        `koanf:"redis_prefix"`
	ExpiredRetention time.Duration `koanf:"expired_retention"`
}

type CredentialsConfig struct {
	Backend     string `koanf:"backend"`
	PostgresDSN string `koanf:"postgres_dsn"`
	// SeedDemoUser inserts test_user/password123 at startup.
	SeedDemoUser bool `koanf:"seed_demo_user"`
}

type PasswordConfig struct {
	BcryptCost int `koanf:"bcrypt_cost"`
}

type AuditConfig struct {
	Enabled    bool `koanf:"enabled"`
	BufferSize int  `koanf:"buffer_size"`
	DropIfFull bool `koanf:"drop_if_full"`
}

type MetricsConfig struct {
	Enabled           bool `koanf:"enabled"`
	LatencyHistograms bool `koanf:"latency_histograms"`
	// OTel additionally exports the counters through an OpenTelemetry meter.
	OTel bool `koanf:"otel"`
}

// ThrottleConfig limits failed logins per username.
type ThrottleConfig struct {
	Enabled     bool          `koanf:"enabled"`
	MaxAttempts int           `koanf:"max_attempts"`
	Window      time.Duration `koanf:"window"`
}

func defaults() map[string]any {
	return map[string]any{
		"server.addr":                ":8000",
		"server.read_timeout":        10 * time.Second,
		"server.write_timeout":       10 * time.Second,
		"server.shutdown_timeout":    15 * time.Second,
		"log.format":                 "json",
		"log.level":                  "info",
		"jwt.signing_key":            "",
		"jwt.algorithm":              "HS256",
		"jwt.ttl":                    time.Hour,
		"jwt.issuer":                 "",
		"session.backend":            SessionBackendMemory,
		"session.ttl":                time.Hour,
		"session.redis_addr":         "localhost:6379",
		"session.redis_prefix":       "dualauth",
		"session.expired_retention":  time.Hour,
		"credentials.backend":        CredentialsMemory,
		"credentials.postgres_dsn":   "",
		"credentials.seed_demo_user": true,
		"password.bcrypt_cost":       0,
		"audit.enabled":              true,
		"audit.buffer_size":          1024,
		"audit.drop_if_full":         true,
		"metrics.enabled":            true,
		"metrics.latency_histograms": true,
		"metrics.otel":               false,
		"throttle.enabled":           false,
		"throttle.max_attempts":      5,
		"throttle.window":            15 * time.Minute,
	}
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"addr":                "server.addr",
	"log-format":          "log.format",
	"log-level":           "log.level",
	"session-backend":     "session.backend",
	"redis-addr":          "session.redis_addr",
	"credentials-backend": "credentials.backend",
	"postgres-dsn":        "credentials.postgres_dsn",
	"jwt-algorithm":       "jwt.algorithm",
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := defaults()
	fs.String("addr", d["server.addr"].(string), "HTTP listen address")
	fs.String("log-format", d["log.format"].(string), "log format (json or text)")
	fs.String("log-level", d["log.level"].(string), "log level (debug, info, warn, error)")
	fs.String("session-backend", d["session.backend"].(string), "session backend (memory, redis, redis-embedded)")
	fs.String("redis-addr", d["session.redis_addr"].(string), "redis address for the redis session backend")
	fs.String("credentials-backend", d["credentials.backend"].(string), "credential store (memory or postgres)")
	fs.String("postgres-dsn", "", "PostgreSQL DSN for the postgres credential store")
	fs.String("jwt-algorithm", d["jwt.algorithm"].(string), "token signing algorithm (HS256, HS384, HS512)")
}

// Load merges defaults, the YAML file at path (skipped when empty), the
// flags in fs (may be nil) and the environment.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	return load(path, fs, os.LookupEnv)
}

func load(path string, fs *pflag.FlagSet, lookup func(string) (string, bool)) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults() {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithValue(fs, ".", k, func(name, value string) (string, any) {
			return flagKeys[name], value
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	if err := applyEnv(k, lookup); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(k *koanf.Koanf, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvSecretKey); ok {
		if err := k.Set("jwt.signing_key", v); err != nil {
			return err
		}
	}
	if v, ok := lookup(EnvJWTAlgorithm); ok && v != "" {
		if err := k.Set("jwt.algorithm", v); err != nil {
			return err
		}
	}
	if v, ok := lookup(EnvJWTExpirationHours); ok && v != "" {
		hours, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || hours <= 0 {
			return fmt.Errorf("%s must be a positive whole number of hours, got %q", EnvJWTExpirationHours, v)
		}
		if err := k.Set("jwt.ttl", time.Duration(hours)*time.Hour); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the process-level fields. Engine fields are validated
// again by the engine builder.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	switch c.Session.Backend {
	case SessionBackendMemory, SessionBackendRedisEmbedded:
	case SessionBackendRedis:
		if c.Session.RedisAddr == "" {
			return errors.New("session.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("session.backend must be memory, redis or redis-embedded, got %q", c.Session.Backend)
	}
	switch c.Credentials.Backend {
	case CredentialsMemory:
	case CredentialsPostgres:
		if c.Credentials.PostgresDSN == "" {
			return errors.New("credentials.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("credentials.backend must be memory or postgres, got %q", c.Credentials.Backend)
	}
	return nil
}

// EngineConfig converts c to the engine configuration. The embedded redis
// backend is a redis backend from the engine's point of view.
func (c *Config) EngineConfig() dualauth.Config {
	cfg := dualauth.DefaultConfig()
	if c.JWT.SigningKey != "" {
		cfg.JWT.SigningKey = []byte(c.JWT.SigningKey)
	}
	cfg.JWT.Algorithm = strings.ToUpper(c.JWT.Algorithm)
	cfg.JWT.TTL = c.JWT.TTL
	cfg.JWT.Issuer = c.JWT.Issuer

	cfg.Session.TTL = c.Session.TTL
	cfg.Session.Backend = SessionBackendMemory
	if c.Session.Backend == SessionBackendRedis || c.Session.Backend == SessionBackendRedisEmbedded {
		cfg.Session.Backend = SessionBackendRedis
	}
	cfg.Session.RedisPrefix = c.Session.RedisPrefix
	cfg.Session.ExpiredRetention = c.Session.ExpiredRetention

	cfg.Password.BcryptCost = c.Password.BcryptCost
	cfg.Audit = dualauth.AuditConfig{
		Enabled:    c.Audit.Enabled,
		BufferSize: c.Audit.BufferSize,
		DropIfFull: c.Audit.DropIfFull,
	}
	cfg.Metrics = dualauth.MetricsConfig{
		Enabled:                 c.Metrics.Enabled,
		EnableLatencyHistograms: c.Metrics.Enabled && c.Metrics.LatencyHistograms,
	}
	cfg.Throttle = dualauth.ThrottleConfig{
		Enabled:     c.Throttle.Enabled,
		MaxAttempts: c.Throttle.MaxAttempts,
		Window:      c.Throttle.Window,
	}
	return cfg
}

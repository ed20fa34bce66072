package dualauth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/dualauth/jwt"
	"github.com/MrEthical07/dualauth/password"
)

// Session backends understood by the Builder.
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Config is the engine configuration. Build it from DefaultConfig and
// override fields; the Builder validates it.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Throttle ThrottleConfig
}

// JWTConfig configures token issuance and verification.
type JWTConfig struct {
	// SigningKey may be empty at build time; token operations then fail
	// with an INTERNAL error.
	SigningKey []byte
	// Algorithm is HS256, HS384 or HS512.
	Algorithm string
	TTL       time.Duration
	Issuer    string
	Leeway    time.Duration
}

// SessionConfig configures cookie-scheme sessions.
type SessionConfig struct {
	TTL         time.Duration
	Backend     string
	RedisPrefix string
	// ExpiredRetention keeps expired records in Redis so reads report
	// "session expired" rather than "session invalid".
	ExpiredRetention time.Duration
}

type PasswordConfig struct {
	// BcryptCost is used for the timing-parity dummy hash. Zero means
	// bcrypt's default.
	BcryptCost int
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// ThrottleConfig limits failed logins per username. Counters live in Redis
// when the Builder has a Redis client, in process memory otherwise.
type ThrottleConfig struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
}

// DefaultConfig returns the reference configuration: HS256 tokens and
// in-memory sessions, both valid for one hour.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			Algorithm: jwt.HS256,
			TTL:       time.Hour,
		},
		Session: SessionConfig{
			TTL:              time.Hour,
			Backend:          SessionBackendMemory,
			RedisPrefix:      "dualauth",
			ExpiredRetention: time.Hour,
		},
		Password: PasswordConfig{
			BcryptCost: password.DefaultBcryptCost,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Throttle: ThrottleConfig{
			Enabled:     false,
			MaxAttempts: 5,
			Window:      15 * time.Minute,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.SigningKey = cloneBytes(cfg.JWT.SigningKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch strings.ToUpper(c.JWT.Algorithm) {
	case jwt.HS256, jwt.HS384, jwt.HS512:
	default:
		return fmt.Errorf("JWT Algorithm %q is not supported", c.JWT.Algorithm)
	}
	if c.JWT.TTL <= 0 {
		return errors.New("JWT TTL must be > 0")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	switch c.Session.Backend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if strings.TrimSpace(c.Session.RedisPrefix) == "" {
			return errors.New("Session RedisPrefix must be set for the redis backend")
		}
	default:
		return fmt.Errorf("Session Backend %q is not supported", c.Session.Backend)
	}
	if c.Session.ExpiredRetention < 0 {
		return errors.New("Session ExpiredRetention must be >= 0")
	}

	if c.Password.BcryptCost != 0 {
		if _, err := password.NewBcrypt(c.Password.BcryptCost); err != nil {
			return fmt.Errorf("Password BcryptCost: %w", err)
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}
	if c.Throttle.Enabled {
		if c.Throttle.MaxAttempts <= 0 {
			return errors.New("Throttle MaxAttempts must be > 0 when throttling is enabled")
		}
		if c.Throttle.Window <= 0 {
			return errors.New("Throttle Window must be > 0 when throttling is enabled")
		}
	}
	return nil
}

// LintWarning is a configuration that is valid but probably unintended.
type LintWarning struct {
	Code    string
	Message string
}

// LintResult is the list returned by Lint.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// Lint returns warnings for settings Validate accepts but which weaken the
// deployment.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code, msg string) {
		ws = append(ws, LintWarning{Code: code, Message: msg})
	}

	switch {
	case len(c.JWT.SigningKey) == 0:
		add("signing_key_missing", "no signing key: every jwt operation will fail")
	case len(c.JWT.SigningKey) < 32:
		add("signing_key_short", "signing key shorter than 32 bytes")
	}
	if c.JWT.TTL > 24*time.Hour {
		add("token_ttl_long", "tokens cannot be revoked and live longer than a day")
	}
	if c.Session.TTL > 7*24*time.Hour {
		add("session_ttl_long", "sessions live longer than a week")
	}
	if c.Session.Backend == SessionBackendRedis && c.Session.ExpiredRetention == 0 {
		add("expired_retention_zero", "expired redis sessions will read as invalid instead of expired")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", "audit events are not emitted")
	}
	return ws
}

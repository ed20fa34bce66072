package dualauth

import (
	"time"

	"github.com/MrEthical07/dualauth/password"
	"github.com/MrEthical07/dualauth/session"
)

// SecurityReport summarizes the posture an engine was built with. It holds
// no secrets.
type SecurityReport struct {
	SigningAlgorithm     string
	SigningKeyConfigured bool
	TokenTTL             time.Duration
	SessionTTL           time.Duration
	// SessionStore is "memory", "redis" or "custom".
	SessionStore string
	// PasswordVerifier is "bcrypt", "argon2id", "auto" or "custom".
	PasswordVerifier string
	ThrottleActive   bool
	AuditEnabled     bool
	MetricsEnabled   bool
	Warnings         []string
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	cfg := e.config
	return SecurityReport{
		SigningAlgorithm:     cfg.JWT.Algorithm,
		SigningKeyConfigured: len(cfg.JWT.SigningKey) > 0,
		TokenTTL:             cfg.JWT.TTL,
		SessionTTL:           cfg.Session.TTL,
		SessionStore:         sessionStoreKind(e.sessions),
		PasswordVerifier:     verifierKind(e.verifier),
		ThrottleActive:       e.limiter != nil,
		AuditEnabled:         e.audit != nil,
		MetricsEnabled:       e.metrics.Enabled(),
		Warnings:             cfg.Lint().Codes(),
	}
}

func sessionStoreKind(s session.Store) string {
	switch s.(type) {
	case *session.MemoryStore:
		return SessionBackendMemory
	case *session.RedisStore:
		return SessionBackendRedis
	default:
		return "custom"
	}
}

func verifierKind(v password.Verifier) string {
	switch v.(type) {
	case *password.Bcrypt:
		return "bcrypt"
	case *password.Argon2:
		return "argon2id"
	case *password.Auto:
		return "auto"
	default:
		return "custom"
	}
}

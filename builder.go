package dualauth

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/dualauth/credentials"
	"github.com/MrEthical07/dualauth/internal/audit"
	"github.com/MrEthical07/dualauth/internal/rate"
	"github.com/MrEthical07/dualauth/jwt"
	"github.com/MrEthical07/dualauth/password"
	"github.com/MrEthical07/dualauth/session"
)

// dummyPassword is hashed once per engine so that unknown usernames cost one
// password verification, like known ones.
const dummyPassword = "dualauth-timing-parity"

// Builder assembles an Engine. Configure it during startup, call Build once,
// then discard it.
type Builder struct {
	config      Config
	credentials credentials.Store
	sessions    session.Store
	redis       redis.UniversalClient
	verifier    password.Verifier
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
	auditSink   audit.Sink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. The signing key is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithCredentialStore sets the credential lookup. It is required.
func (b *Builder) WithCredentialStore(s credentials.Store) *Builder {
	b.credentials = s
	return b
}

// WithSessionStore injects a session store and overrides Session.Backend.
// The engine does not close an injected store.
func (b *Builder) WithSessionStore(s session.Store) *Builder {
	b.sessions = s
	return b
}

// WithRedis sets the client used by the redis session backend.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPasswordVerifier overrides the default verifier, which accepts bcrypt
// and argon2id hashes.
func (b *Builder) WithPasswordVerifier(v password.Verifier) *Builder {
	b.verifier = v
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for issuance and expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithSessionIDGenerator overrides the random UUID generator used for
// session identifiers.
func (b *Builder) WithSessionIDGenerator(gen func() string) *Builder {
	b.newID = gen
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. A Builder can be
// built only once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.credentials == nil {
		return nil, errors.New("credential store required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	newID := b.newID
	if newID == nil {
		newID = uuid.NewString
	}

	// -------- TOKEN CODEC --------
	codec, err := jwt.NewCodec(jwt.Config{
		Key:       cloneBytes(cfg.JWT.SigningKey),
		Algorithm: cfg.JWT.Algorithm,
		TTL:       cfg.JWT.TTL,
		Issuer:    cfg.JWT.Issuer,
		Leeway:    cfg.JWT.Leeway,
		Now:       now,
	})
	if err != nil {
		return nil, err
	}

	// -------- PASSWORDS --------
	verifier := b.verifier
	if verifier == nil {
		verifier = password.NewAuto()
	}
	hasher, err := password.NewBcrypt(cfg.Password.BcryptCost)
	if err != nil {
		return nil, err
	}
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}

	// -------- SESSION STORE --------
	engine := &Engine{
		config:      cfg,
		credentials: b.credentials,
		codec:       codec,
		verifier:    verifier,
		dummyHash:   dummyHash,
		logger:      logger,
		now:         now,
		newID:       newID,
	}

	switch {
	case b.sessions != nil:
		engine.sessions = b.sessions
	case cfg.Session.Backend == SessionBackendRedis:
		if b.redis == nil {
			return nil, errors.New("redis client required for the redis session backend")
		}
		engine.sessions = session.NewRedisStore(b.redis, session.RedisConfig{
			Prefix:           cfg.Session.RedisPrefix,
			ExpiredRetention: cfg.Session.ExpiredRetention,
			Now:              now,
		})
	default:
		mem := session.NewMemoryStore(now)
		engine.sessions = mem
		engine.ownedSessions = mem
	}

	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	// -------- LOGIN THROTTLE --------
	if cfg.Throttle.Enabled {
		limits := rate.Config{MaxAttempts: cfg.Throttle.MaxAttempts, Window: cfg.Throttle.Window}
		if b.redis != nil {
			engine.limiter = rate.NewRedis(b.redis, cfg.Session.RedisPrefix+":throttle", limits)
		} else {
			engine.limiter = rate.NewMemory(limits, now)
		}
	}

	b.built = true

	return engine, nil
}

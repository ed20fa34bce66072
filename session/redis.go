package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/dualauth/autherr"
	"github.com/redis/go-redis/v9"
)

// DefaultExpiredRetention is how long Redis keeps a record past ExpiresAt so
// that reads can still report "session expired" rather than "session invalid".
const DefaultExpiredRetention = time.Hour

// takeSessionScript reads and removes a key in one step.
const takeSessionScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return false
end
redis.call("DEL", KEYS[1])
return data
`

var takeSessionLua = redis.NewScript(takeSessionScript)

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	// Prefix namespaces keys; empty means "dualauth".
	Prefix string
	// ExpiredRetention is added to each record's Redis TTL. Zero selects
	// DefaultExpiredRetention.
	ExpiredRetention time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// RedisStore is a Store backed by Redis. Expiry is decided by comparing
// ExpiresAt with the store clock; the Redis TTL only bounds storage.
type RedisStore struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// NewRedisStore returns a RedisStore using client.
func NewRedisStore(client redis.UniversalClient, cfg RedisConfig) *RedisStore {
	if cfg.Prefix == "" {
		cfg.Prefix = "dualauth"
	}
	if cfg.ExpiredRetention <= 0 {
		cfg.ExpiredRetention = DefaultExpiredRetention
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RedisStore{
		redis:     client,
		prefix:    cfg.Prefix,
		retention: cfg.ExpiredRetention,
		now:       cfg.Now,
	}
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + ":s:" + sessionID
}

func (s *RedisStore) Create(ctx context.Context, sess *Session) (string, error) {
	if err := validateForCreate(sess); err != nil {
		return "", err
	}
	data, err := Encode(sess)
	if err != nil {
		return "", err
	}

	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl < 0 {
		ttl = 0
	}
	ttl += s.retention

	if err := s.redis.Set(ctx, s.key(sess.SessionID), data, ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return sess.SessionID, nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, invalidSession()
		}
		return nil, unavailable(sessionID, err)
	}
	return s.decodeLive(sessionID, data)
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	data, err := takeSessionLua.Run(ctx, s.redis, []string{s.key(sessionID)}).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return invalidSession()
		}
		return unavailable(sessionID, err)
	}
	_, err = s.decodeLive(sessionID, []byte(data))
	return err
}

// Ping checks connectivity and returns the round-trip latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *RedisStore) decodeLive(sessionID string, data []byte) (*Session, error) {
	sess, err := Decode(data)
	if err != nil {
		return nil, autherr.With(autherr.KindInternal, "session store corrupt", err, "session_id", sessionID)
	}
	sess.SessionID = sessionID
	if sess.ExpiredAt(s.now()) {
		return nil, expiredSession()
	}
	return sess, nil
}

func unavailable(sessionID string, err error) error {
	return autherr.With(autherr.KindInternal, "session store unavailable",
		fmt.Errorf("%w: %v", ErrRedisUnavailable, err), "session_id", sessionID)
}

package rate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter tuning parameters.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

type counter interface {
	get(ctx context.Context, key string) (int64, error)
	incr(ctx context.Context, key string, window time.Duration) (int64, error)
	del(ctx context.Context, key string) error
}

// Limiter counts failed logins per username.
type Limiter struct {
	store  counter
	prefix string
	config Config
}

// NewRedis returns a Limiter keeping counters in Redis under prefix.
func NewRedis(client redis.UniversalClient, prefix string, cfg Config) *Limiter {
	return &Limiter{store: &redisCounter{client: client}, prefix: prefix, config: cfg}
}

// NewMemory returns a Limiter keeping counters in process memory. now may be
// nil.
func NewMemory(cfg Config, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		store:  &memoryCounter{now: now, windows: make(map[string]memoryWindow)},
		config: cfg,
	}
}

// Check returns ErrRateLimited when username is over budget.
func (l *Limiter) Check(ctx context.Context, username string) error {
	count, err := l.store.get(ctx, l.key(username))
	if err != nil {
		return err
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Fail records a failed login. It returns ErrRateLimited when this failure
// used up the budget.
func (l *Limiter) Fail(ctx context.Context, username string) error {
	count, err := l.store.incr(ctx, l.key(username), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counter after a successful login.
func (l *Limiter) Reset(ctx context.Context, username string) error {
	return l.store.del(ctx, l.key(username))
}

// Attempts returns the failures recorded in the current window. Missing keys
// return zero and do not reveal account existence.
func (l *Limiter) Attempts(ctx context.Context, username string) (int, error) {
	count, err := l.store.get(ctx, l.key(username))
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (l *Limiter) key(username string) string {
	if l.prefix == "" {
		return "login:" + username
	}
	return l.prefix + ":login:" + username
}

// incrWindowScript increments KEYS[1] and, on the first hit of a window or
// when the key has lost its TTL, expires it after ARGV[1] milliseconds. Both
// happen in one round-trip so a counter can never outlive its window.
const incrWindowScript = `
local n = redis.call('INCR', KEYS[1])
if n == 1 or redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`

var incrWindowLua = redis.NewScript(incrWindowScript)

type redisCounter struct {
	client redis.UniversalClient
}

func (c *redisCounter) get(ctx context.Context, key string) (int64, error) {
	count, err := c.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return count, nil
}

func (c *redisCounter) incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := incrWindowLua.Run(ctx, c.client, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, nil
}

func (c *redisCounter) del(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

type memoryWindow struct {
	count   int64
	expires time.Time
}

type memoryCounter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]memoryWindow
}

func (c *memoryCounter) get(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.windows[key]
	if !ok {
		return 0, nil
	}
	if !c.now().Before(w.expires) {
		delete(c.windows, key)
		return 0, nil
	}
	return w.count, nil
}

func (c *memoryCounter) incr(_ context.Context, key string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	w, ok := c.windows[key]
	if !ok || !now.Before(w.expires) {
		w = memoryWindow{expires: now.Add(window)}
	}
	w.count++
	c.windows[key] = w
	return w.count, nil
}

func (c *memoryCounter) del(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.windows, key)
	c.mu.Unlock()
	return nil
}

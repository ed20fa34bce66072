package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/dualauth"
	"github.com/MrEthical07/dualauth/credentials"
	"github.com/MrEthical07/dualauth/jwt"
	"github.com/MrEthical07/dualauth/session"
)

type loadtestConfig struct {
	sessions    int
	concurrency int
	ops         int
	backend     string
	redisAddr   string
}

// NewLoadtestCmd creates the loadtest subcommand.
func NewLoadtestCmd() *cobra.Command {
	cfg := &loadtestConfig{}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Measure Authorize throughput for both schemes",
		Long: `Seed sessions and tokens, then run concurrent Authorize calls for the
cookie scheme and the jwt scheme and report latency percentiles.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoadtest(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&cfg.sessions, "sessions", 10000, "number of sessions and tokens to seed")
	cmd.Flags().IntVar(&cfg.concurrency, "concurrency", 64, "number of concurrent workers")
	cmd.Flags().IntVar(&cfg.ops, "ops", 100000, "Authorize calls per phase")
	cmd.Flags().StringVar(&cfg.backend, "session-backend", "memory", "session backend (memory, redis, redis-embedded)")
	cmd.Flags().StringVar(&cfg.redisAddr, "redis-addr", "localhost:6379", "redis address for the redis backend")

	return cmd
}

func runLoadtest(ctx context.Context, cfg *loadtestConfig, out io.Writer) error {
	if cfg.sessions <= 0 || cfg.concurrency <= 0 || cfg.ops <= 0 {
		return errors.New("sessions, concurrency, and ops must be > 0")
	}

	engineCfg := dualauth.DefaultConfig()
	engineCfg.JWT.SigningKey = []byte(uuid.NewString() + uuid.NewString())

	store, cleanup, err := loadtestStore(cfg, engineCfg, out)
	if err != nil {
		return err
	}
	defer cleanup()

	engine, err := dualauth.New().
		WithConfig(engineCfg).
		WithCredentialStore(credentials.NewMemoryStore()).
		WithSessionStore(store).
		WithMetricsEnabled(false).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	codec, err := jwt.NewCodec(jwt.Config{
		Key:       engineCfg.JWT.SigningKey,
		Algorithm: engineCfg.JWT.Algorithm,
		TTL:       engineCfg.JWT.TTL,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "seeding %d sessions and tokens...\n", cfg.sessions)
	startSeed := time.Now()
	sessionIDs := make([]string, cfg.sessions)
	tokens := make([]string, cfg.sessions)
	now := time.Now().UTC()
	for i := range cfg.sessions {
		userID := fmt.Sprintf("u%d", i)
		id, err := store.Create(ctx, &session.Session{
			SessionID: uuid.NewString(),
			UserID:    userID,
			Role:      credentials.RoleUser,
			CreatedAt: now,
			ExpiresAt: now.Add(engineCfg.Session.TTL),
		})
		if err != nil {
			return fmt.Errorf("seed session: %w", err)
		}
		sessionIDs[i] = id

		tokens[i], err = codec.Encode(jwt.Claims{SessionID: uuid.NewString(), UserID: userID, Role: credentials.RoleUser})
		if err != nil {
			return fmt.Errorf("seed token: %w", err)
		}
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	cookie := runPhase(cfg.ops, cfg.concurrency, func(r *rand.Rand) error {
		_, err := engine.Authorize(ctx, dualauth.AuthorizeRequest{
			Scheme:    dualauth.SchemeCookie,
			SessionID: sessionIDs[r.IntN(len(sessionIDs))],
		})
		return err
	})
	bearer := runPhase(cfg.ops, cfg.concurrency, func(r *rand.Rand) error {
		_, err := engine.Authorize(ctx, dualauth.AuthorizeRequest{
			Scheme: dualauth.SchemeJWT,
			Token:  tokens[r.IntN(len(tokens))],
		})
		return err
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "authorize cookie", cookie)
	printStats(out, "authorize jwt", bearer)
	return nil
}

func loadtestStore(cfg *loadtestConfig, engineCfg dualauth.Config, out io.Writer) (session.Store, func(), error) {
	switch cfg.backend {
	case "memory":
		mem := session.NewMemoryStore(nil)
		return mem, func() { _ = mem.Close() }, nil
	case "redis", "redis-embedded":
	default:
		return nil, nil, fmt.Errorf("session-backend must be memory, redis or redis-embedded, got %q", cfg.backend)
	}

	addr := cfg.redisAddr
	var mr *miniredis.Miniredis
	if cfg.backend == "redis-embedded" {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
		}
		addr = mr.Addr()
		fmt.Fprintf(out, "using miniredis at %s\n", addr)
	} else {
		fmt.Fprintf(out, "using redis at %s\n", addr)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	store := session.NewRedisStore(client, session.RedisConfig{
		Prefix:           "dualauth-loadtest",
		ExpiredRetention: engineCfg.Session.ExpiredRetention,
	})
	return store, func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}, nil
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func runPhase(ops, concurrency int, op func(r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := range concurrency {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

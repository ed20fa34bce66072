package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/MrEthical07/dualauth"
	"github.com/MrEthical07/dualauth/credentials"
	"github.com/MrEthical07/dualauth/internal/config"
	"github.com/MrEthical07/dualauth/internal/server"
	otelexport "github.com/MrEthical07/dualauth/metrics/export/otel"
	promexport "github.com/MrEthical07/dualauth/metrics/export/prometheus"
	"github.com/MrEthical07/dualauth/password"
)

// Startup connectivity retry policy for Redis and PostgreSQL.
var (
	connectRetries uint64 = 5
	connectBackoff        = 200 * time.Millisecond
)

// app is a built engine plus everything it depends on.
type app struct {
	engine  *dualauth.Engine
	handler http.Handler
	closers []func() error
}

func (a *app) addCloser(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	builder := dualauth.New().
		WithConfig(cfg.EngineConfig()).
		WithLogger(logger)

	client, err := openSessionRedis(ctx, cfg, logger, a)
	if err != nil {
		return nil, err
	}
	if client != nil {
		builder.WithRedis(client)
	}

	store, err := openCredentials(ctx, cfg, logger, a)
	if err != nil {
		return nil, err
	}
	builder.WithCredentialStore(store)

	if cfg.Audit.Enabled {
		builder.WithAuditSink(dualauth.NewSlogSink(logger.With("component", "audit")))
	}

	engine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}
	a.engine = engine
	a.addCloser(func() error {
		engine.Close()
		return nil
	})

	var metrics http.Handler
	if cfg.Metrics.Enabled {
		reg, err := promexport.NewRegistry(engine)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		metrics = promexport.Handler(reg)

		if cfg.Metrics.OTel {
			provider := newMeterProvider(logger, otelExportInterval)
			a.addCloser(func() error {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return provider.Shutdown(shutdownCtx)
			})
			exp, err := otelexport.New(provider.Meter("github.com/MrEthical07/dualauth"), engine)
			if err != nil {
				return nil, fmt.Errorf("failed to start otel export: %w", err)
			}
			a.addCloser(exp.Close)
		}
	}

	a.handler = server.New(server.Options{
		Engine:  engine,
		Logger:  logger,
		Metrics: metrics,
	})
	return a, nil
}

// openSessionRedis returns nil for the memory backend.
func openSessionRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger, a *app) (*redis.Client, error) {
	var addr string
	switch cfg.Session.Backend {
	case config.SessionBackendRedisEmbedded:
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("failed to start embedded redis: %w", err)
		}
		a.addCloser(func() error {
			mr.Close()
			return nil
		})
		addr = mr.Addr()
		logger.Info("embedded redis started", "addr", addr)
	case config.SessionBackendRedis:
		addr = cfg.Session.RedisAddr
	default:
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	a.addCloser(client.Close)

	err := pingWithRetry(ctx, logger, "redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

func openCredentials(ctx context.Context, cfg *config.Config, logger *slog.Logger, a *app) (credentials.Store, error) {
	var seed []credentials.Record
	if cfg.Credentials.SeedDemoUser {
		hasher, err := password.NewBcrypt(cfg.Password.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		demo, err := credentials.DemoUser(hasher)
		if err != nil {
			return nil, err
		}
		seed = append(seed, demo)
	}

	if cfg.Credentials.Backend != config.CredentialsPostgres {
		return credentials.NewMemoryStore(seed...), nil
	}

	pool, err := pgxpool.New(ctx, cfg.Credentials.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	a.addCloser(func() error {
		pool.Close()
		return nil
	})

	if err := pingWithRetry(ctx, logger, "postgres", pool.Ping); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	store := credentials.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	for _, rec := range seed {
		if err := store.Upsert(ctx, rec); err != nil {
			return nil, err
		}
	}
	logger.Info("connected to postgres", "seeded", len(seed))
	return store, nil
}

func pingWithRetry(ctx context.Context, logger *slog.Logger, dependency string, ping func(context.Context) error) error {
	backoff := retry.WithMaxRetries(connectRetries, retry.NewExponential(connectBackoff))
	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := ping(ctx); err != nil {
			logger.Warn("dependency not ready", "dependency", dependency, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/dualauth/internal/config"
	"github.com/MrEthical07/dualauth/internal/logging"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the authentication HTTP API",
		Long: `Load configuration, build the engine with the configured session and
credential backends, and serve HTTP until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, cmd.ErrOrStderr(), cmd.Root().Version)
		},
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

// runServe blocks until ctx is done or the listener fails.
func runServe(ctx context.Context, cfg *config.Config, logOut io.Writer, ver string) error {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := logging.Setup("dualauthd", ver, cfg.Log.Format, level, logOut)

	engineCfg := cfg.EngineConfig()
	for _, w := range engineCfg.Lint() {
		logger.Warn("configuration warning", "code", w.Code, "detail", w.Message)
	}

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("shutdown cleanup failed", "error", err)
		}
	}()

	report := a.engine.SecurityReport()
	logger.Info("security posture",
		"signing_algorithm", report.SigningAlgorithm,
		"session_store", report.SessionStore,
		"password_verifier", report.PasswordVerifier,
		"throttle", report.ThrottleActive,
		"audit", report.AuditEnabled,
		"metrics", report.MetricsEnabled,
		"warnings", report.Warnings,
	)

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr, err)
	}

	srv := &http.Server{
		Handler:           a.handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	logger.Info("dualauthd listening",
		"addr", ln.Addr().String(),
		"session_backend", cfg.Session.Backend,
		"credentials_backend", cfg.Credentials.Backend,
	)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

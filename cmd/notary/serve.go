package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IsaacBoateng/Private-blockchain/pkg/api"
	"github.com/IsaacBoateng/Private-blockchain/pkg/block"
	"github.com/IsaacBoateng/Private-blockchain/pkg/chain"
	"github.com/IsaacBoateng/Private-blockchain/pkg/config"
	"github.com/IsaacBoateng/Private-blockchain/pkg/observability"
	"github.com/IsaacBoateng/Private-blockchain/pkg/ownership"
	"github.com/IsaacBoateng/Private-blockchain/pkg/store"
	"github.com/IsaacBoateng/Private-blockchain/pkg/wallet"
)

// app is the wired service.
type app struct {
	cfg       *config.Config
	chain     *chain.Chain
	store     store.Store
	server    *api.Server
	telemetry *observability.Provider
	closers   []func() error
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	st, err := store.Open(ctx, cfg.StoreDriver, cfg.StoreDSN())
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", cfg.StoreDriver, err)
	}
	return st, nil
}

func newReplayGuard(ctx context.Context, cfg *config.Config) (ownership.ReplayGuard, func() error, error) {
	switch cfg.ReplayGuard {
	case "", "off":
		return nil, nil, nil
	case "memory":
		return ownership.NewMemoryReplayGuard(), nil, nil
	case "redis":
		g := ownership.NewRedisReplayGuard(cfg.RedisAddr, "", 0)
		if err := g.Ping(ctx); err != nil {
			_ = g.Close()
			return nil, nil, fmt.Errorf("redis replay guard at %s: %w", cfg.RedisAddr, err)
		}
		return g, g.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown replay guard %q", cfg.ReplayGuard)
	}
}

// buildApp wires every component from cfg and bootstraps the chain.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	alg, err := block.ParseAlgorithm(cfg.HashAlgorithm)
	if err != nil {
		return nil, err
	}
	verifier, err := wallet.NewVerifier(cfg.SignatureScheme)
	if err != nil {
		return nil, err
	}

	otelCfg := observability.DefaultConfig()
	otelCfg.Enabled = cfg.OTelEnabled
	otelCfg.Endpoint = cfg.OTelEndpoint
	a.telemetry, err = observability.New(ctx, otelCfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return a.telemetry.Shutdown(context.Background()) })

	a.store, err = openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.store.Close)

	a.chain = chain.New(
		chain.WithStore(a.store),
		chain.WithHashAlgorithm(alg),
		chain.WithHandler(a.telemetry.BlockHandler()),
	)
	if err := a.chain.Initialize(ctx); err != nil {
		return nil, err
	}

	guard, closeGuard, err := newReplayGuard(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if closeGuard != nil {
		a.closers = append(a.closers, closeGuard)
	}
	wfOpts := []ownership.Option{}
	if guard != nil {
		wfOpts = append(wfOpts, ownership.WithReplayGuard(guard))
	}
	workflow := ownership.NewWorkflow(a.chain, verifier, wfOpts...)

	a.server, err = api.NewServer(a.chain, workflow,
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithTelemetry(a.telemetry),
	)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { a.server.Close(); return nil })

	ok = true
	return a, nil
}

// close runs closers in reverse order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Error("shutdown step failed", "error", err)
		}
	}
	a.closers = nil
}

func runServer(stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 2
	}
	logger := newLogger(stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	defer a.close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("notary listening", "addr", srv.Addr, "height", a.chain.Height(),
			"store", cfg.StoreDriver, "scheme", cfg.SignatureScheme, "hash", a.chain.Algorithm())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			return 1
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
			return 1
		}
	}
	return 0
}

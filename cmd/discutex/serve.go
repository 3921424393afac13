package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/discutex/discutex/internal/config"
	httpapp "github.com/discutex/discutex/internal/http"
	"github.com/discutex/discutex/internal/observability"
	"github.com/discutex/discutex/internal/rate"
	"github.com/discutex/discutex/internal/store"
	"github.com/discutex/discutex/internal/store/memory"
	"github.com/discutex/discutex/internal/store/redis"
	"github.com/discutex/discutex/internal/store/sqlite"
)

const sweepInterval = time.Minute

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"server"},
		Usage:   "Run the web frontend",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address (overrides DISCUTEX_ADDR)"},
		},
		Action: runServer,
	}
}

func runServer(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Addr = addr
	}
	if api := c.String("api"); api != "" {
		cfg.APIBaseURL = api
	}

	logger := observability.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:  observability.ServiceName,
		Environment:  cfg.Env,
		Enabled:      cfg.TracingEnabled,
		Exporter:     cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	backend, err := openBackend(c.Context, cfg)
	if err != nil {
		return fmt.Errorf("open session backend: %w", err)
	}
	defer backend.Close()

	limiter := rate.NewMemory()
	server, err := httpapp.NewServer(backend, limiter, *cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	go sweep(ctx, logger, limiter, backend)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("discutex listening", "addr", cfg.Addr, "api", cfg.APIBaseURL, "sessions", cfg.SessionBackend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	return httpServer.Shutdown(shutdownCtx)
}

func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.SessionBackend {
	case "redis":
		return redis.Open(ctx, cfg.RedisURL)
	case "memory":
		return memory.New(), nil
	default:
		return sqlite.Open(cfg.SessionDB)
	}
}

// sweep drops expired limiter buckets and, for sqlite, expired sessions.
func sweep(ctx context.Context, logger *slog.Logger, limiter *rate.MemoryLimiter, backend store.Backend) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		buckets := limiter.Sweep()
		var purged int64
		if st, ok := backend.(*sqlite.Store); ok {
			n, err := st.PurgeExpired(ctx)
			if err != nil {
				logger.WarnContext(ctx, "purge expired sessions", "error", err)
			}
			purged = n
		}
		if buckets > 0 || purged > 0 {
			logger.DebugContext(ctx, "swept expired state", "buckets", buckets, "sessions", purged)
		}
	}
}

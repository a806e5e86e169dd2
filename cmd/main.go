package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/flashquiz/internal/adapters/http/api"
	"github.com/okian/flashquiz/internal/adapters/http/swagger"
	"github.com/okian/flashquiz/internal/adapters/llm"
	app "github.com/okian/flashquiz/internal/app"
	"github.com/okian/flashquiz/internal/config"
	"github.com/okian/flashquiz/pkg/logger"
	"github.com/okian/flashquiz/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Server limits. Writes allow for slow model calls.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 90 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	gaugeInterval     = 5 * time.Second
)

func main() {
	// Only the collectors registered by pkg/metrics are exported.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "flashquiz:", err)
		stop()
		os.Exit(1)
	}
}

// run serves until ctx is cancelled or the listener fails.
func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level, using info", logger.String("log_level", cfg.LogLevel))
	}

	svc, err := buildService(cfg, log)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go every(ctx, metrics.RefreshInterval(), updateSystemMetrics)
	// GetStats refreshes the session and deck gauges as a side effect.
	go every(ctx, gaugeInterval, func() { _ = svc.GetStats() })

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", logger.String("addr", cfg.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info(ctx, "server stopped")
	return nil
}

// buildService maps configuration onto service options.
func buildService(cfg *config.Config, l logger.Logger) (*app.Service, error) {
	opts := []app.Option{
		app.WithLogger(l),
		app.WithDeckDir(cfg.DeckDir),
		app.WithWatchDecks(cfg.WatchDecks),
		app.WithLeaderboardBackend(cfg.LeaderboardBackend, cfg.LeaderboardPath),
		app.WithLeaderboardSize(cfg.LeaderboardSize),
		app.WithLockTimeout(cfg.LeaderboardLockTimeout()),
		app.WithSessionIdleTimeout(cfg.SessionIdleTimeout()),
		app.WithSessionSweepInterval(cfg.SessionSweepInterval()),
		app.WithMaxSessions(cfg.MaxSessions),
		app.WithDedupeSize(cfg.DedupeSize),
	}

	if cfg.LLMProvider != config.ProviderOffline {
		factory, err := llm.NewFactory(cfg.LLMProvider,
			llm.WithBaseURL(cfg.LLMBaseURL),
			llm.WithModel(cfg.LLMModel),
			llm.WithTimeout(cfg.LLMTimeout()),
			llm.WithDefaultKey(cfg.LLMAPIKey),
			llm.WithLogger(l.Named("llm")),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, app.WithGenerator(factory))
	}

	return app.New(opts...), nil
}

// newMux registers the docs and business routes.
func newMux(ctx context.Context, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	return mux
}

// every calls fn on each tick until ctx ends.
func every(ctx context.Context, interval time.Duration, fn func()) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}

// updateSystemMetrics samples heap, goroutines and mean GC pause.
func updateSystemMetrics() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	metrics.UpdateSystemMemoryUsage(ms.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if ms.NumGC > 0 {
		pause := time.Duration(ms.PauseTotalNs / uint64(ms.NumGC))
		metrics.RecordSystemGCPauseTime(float64(pause) / float64(time.Millisecond))
	}
}

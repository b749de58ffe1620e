package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/coachfit/internal/adapters/http/api"
	"github.com/okian/coachfit/internal/adapters/http/swagger"
	"github.com/okian/coachfit/internal/adapters/repository"
	app "github.com/okian/coachfit/internal/app"
	"github.com/okian/coachfit/internal/config"
	"github.com/okian/coachfit/internal/domain/schema"
	"github.com/okian/coachfit/pkg/logger"
	"github.com/okian/coachfit/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal(ctx, "coachfit stopped", logger.Error(err))
	}
}

// run loads the artifact and roster, serves HTTP and blocks until ctx ends.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	handler, closeFn, err := buildHandler(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeFn()

	metrics.StartSystemCollector(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info(ctx, "server stopped")
	return nil
}

// buildHandler wires schema, roster, service and routes. The returned func
// releases the roster backend.
func buildHandler(ctx context.Context, cfg *config.Config, log logger.Logger) (http.Handler, func(), error) {
	sch, err := schema.Load(ctx, cfg.ArtifactPath)
	if err != nil {
		return nil, nil, err
	}
	metrics.Configure(
		metrics.WithCustomLabels(map[string]string{"model": sch.ModelType()}),
		metrics.WithRefreshInterval(cfg.MetricsRefreshInterval),
	)

	log.Info(ctx, "artifact loaded",
		logger.String("path", cfg.ArtifactPath),
		logger.String("model", sch.ModelType()),
		logger.Int("feature_columns", sch.NumColumns()),
		logger.Int("skills", len(sch.SkillList())))

	loader, closeFn, err := newRosterLoader(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	roster, err := repository.NewStore(ctx, loader, repository.WithLogger(log.Named("roster")))
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	svc, err := app.New(sch, roster,
		app.WithLogger(log.Named("service")),
		app.WithBatchConcurrency(cfg.BatchConcurrency),
	)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	mux := http.NewServeMux()
	swagger.Register(mux)
	api.NewServer(svc, svc, api.Limits{
		DefaultTopN:      cfg.DefaultTopN,
		MaxTopN:          cfg.MaxTopN,
		MaxBatchSize:     cfg.MaxBatchSize,
		MaxRosterListing: cfg.MaxRosterListing,
		RateLimit:        cfg.RateLimitRPS,
		RateBurst:        cfg.RateLimitBurst,
	}).Register(mux)
	return mux, closeFn, nil
}

func newRosterLoader(ctx context.Context, cfg *config.Config) (repository.Loader, func(), error) {
	switch cfg.RosterSource {
	case config.RosterSourceRedis:
		l, err := repository.NewRedisLoader(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisKey)
		if err != nil {
			return nil, nil, err
		}
		return l, func() { _ = l.Close() }, nil
	default:
		return repository.NewCSVLoader(cfg.RosterPath), func() {}, nil
	}
}

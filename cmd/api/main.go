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

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/projetos/internal/access"
	"github.com/gestaozabele/projetos/internal/auth"
	"github.com/gestaozabele/projetos/internal/config"
	"github.com/gestaozabele/projetos/internal/db"
	internalhttp "github.com/gestaozabele/projetos/internal/http"
	httpmiddleware "github.com/gestaozabele/projetos/internal/http/middleware"
	"github.com/gestaozabele/projetos/internal/metrics"
	"github.com/gestaozabele/projetos/internal/monitor"
	"github.com/gestaozabele/projetos/internal/progress"
	"github.com/gestaozabele/projetos/internal/repo"
	"github.com/gestaozabele/projetos/internal/resilience"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api encerrada com erro")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	catalog := access.DefaultCatalog()
	if cfg.CatalogFile != "" {
		catalog, err = access.LoadCatalogFile(cfg.CatalogFile)
		if err != nil {
			return fmt.Errorf("catálogo: %w", err)
		}
		log.Info().Str("file", cfg.CatalogFile).Int("positions", len(catalog)).Msg("catálogo de cargos carregado")
	}
	policy := access.NewPolicy(catalog)

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis parse: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	m := metrics.New()
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)

	projects := repo.NewProjectRepository(pool)
	tasks := repo.NewTaskRepository(pool)
	grants := repo.NewGrantRepository(pool)

	var locker progress.Locker
	if cfg.Progress.Serialize {
		locker = progress.NewRedisLocker(redisClient, cfg.Progress.LockTTL)
		log.Info().Dur("lock_ttl", cfg.Progress.LockTTL).Msg("recálculo de progresso serializado por projeto")
	}
	reconciler := progress.NewReconciler(tasks, projects, locker, m,
		log.With().Str("component", "progress").Logger())

	resolverLogger := log.With().Str("component", "access").Logger()
	resolver := access.NewResolver(policy, auth.ContextIdentity{}, projects, tasks, grants, redisClient,
		resilience.NewCircuitBreaker("grants", resilience.BreakerConfig{}, resolverLogger),
		access.ResolverConfig{CacheTTL: cfg.Permission.CacheTTL, Timeout: cfg.Permission.Timeout},
		m, resolverLogger)

	var notifier monitor.Notifier
	if webhook := monitor.NewWebhookNotifier(cfg.Progress.AlertWebhook); webhook != nil {
		notifier = webhook
	}
	sweeper := monitor.NewService(projects, reconciler, monitor.Config{Interval: cfg.Progress.SweepInterval},
		log.With().Str("component", "monitor").Logger(), notifier)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	handler := internalhttp.NewRouter(internalhttp.Deps{
		JWT:         jwtManager,
		Policy:      policy,
		Projects:    projects,
		Tasks:       tasks,
		Progress:    reconciler,
		Permissions: resolver,
		Metrics:     m,
		Checks: []internalhttp.ReadinessCheck{
			{Name: "db", Check: pool.Ping},
			{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		},
		AllowOrigins:  cfg.AllowOrigins,
		PublicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		UserLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
		Logger:        log.Logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("API ouvindo em :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("encerrando...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

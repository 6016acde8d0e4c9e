package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/escrowledger/internal/adapter/http"
	"github.com/iho/escrowledger/internal/adapter/http/handler"
	"github.com/iho/escrowledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/escrowledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/escrowledger/internal/adapter/repository/redis"
	"github.com/iho/escrowledger/internal/infrastructure/auth"
	"github.com/iho/escrowledger/internal/infrastructure/config"
	"github.com/iho/escrowledger/internal/infrastructure/cryptocondition"
	"github.com/iho/escrowledger/internal/infrastructure/eventpublisher"
	"github.com/iho/escrowledger/internal/infrastructure/expiry"
	"github.com/iho/escrowledger/internal/infrastructure/logger"
	"github.com/iho/escrowledger/internal/infrastructure/metrics"
	"github.com/iho/escrowledger/internal/infrastructure/postgres"
	"github.com/iho/escrowledger/internal/infrastructure/receipt"
	"github.com/iho/escrowledger/internal/infrastructure/redis"
	"github.com/iho/escrowledger/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Ledger: cfg.BaseURI})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if err := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, log).Up(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	signer, err := newSigner(cfg, log)
	if err != nil {
		return err
	}

	idGen := postgresRepo.NewULIDGenerator()
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)

	monitor := expiry.NewMonitor(expiry.Config{
		Logger:   &log,
		Interval: cfg.ExpirySweepInterval,
		Watched:  m.ExpiryWatched,
	})

	var (
		expiryMonitor usecase.ExpiryMonitor = monitor
		asynqOpt      asynq.RedisClientOpt
	)
	if cfg.ExpiryBackend == config.ExpiryBackendAsynq {
		asynqOpt, err = redis.AsynqConnOpt(cfg.RedisURL)
		if err != nil {
			return err
		}
		expiryMonitor = expiry.NewScheduler(asynqOpt, cfg.ExpiryQueue, monitor)
	}

	transferUC := usecase.NewTransferUseCase(usecase.TransferDeps{
		TxManager:       postgresRepo.NewTxManager(pool),
		AccountRepo:     postgresRepo.NewAccountRepository(pool),
		TransferRepo:    postgresRepo.NewTransferRepository(pool),
		FulfillmentRepo: postgresRepo.NewFulfillmentRepository(pool),
		EntryRepo:       entryRepo,
		IDGen:           idGen,
		Verifier:        cryptocondition.NewRegistry(),
		Expiry:          expiryMonitor,
		Notifier:        usecase.NewOutboxNotifier(outboxRepo, idGen),
		Signer:          signer,
		Retrier:         postgresRepo.NewRetrier(log),
		Cache:           redisRepo.NewCache(redisClient),
		Metrics:         m,
		Logger:          &log,
	}, usecase.TransferConfig{
		BaseURI:                    cfg.BaseURI,
		HoldAccount:                cfg.HoldAccount,
		AmountPrecision:            int(cfg.AmountPrecision),
		AmountScale:                int(cfg.AmountScale),
		RequireCreditAuthorization: cfg.FeatureCreditAuth,
		TransferCacheTTL:           cfg.TransferCacheTTL,
	})

	restored, err := transferUC.RestoreWatches(ctx)
	if err != nil {
		return fmt.Errorf("restore expiry watches: %w", err)
	}
	log.Info().Int("count", restored).Str("backend", cfg.ExpiryBackend).Msg("expiry watches restored")

	errCh := make(chan error, 3)

	if cfg.ExpiryBackend == config.ExpiryBackendAsynq {
		worker, mux := expiry.NewWorker(asynqOpt, cfg.ExpiryQueue, transferUC)
		if err := worker.Start(mux); err != nil {
			return fmt.Errorf("start expiry worker: %w", err)
		}
		defer worker.Shutdown()
	} else {
		go func() {
			if err := monitor.Run(ctx, transferUC); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("expiry monitor: %w", err)
			}
		}()
	}

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  eventpublisher.NewRedisPublisher(redisClient, ""),
		Logger:     &log,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
		Retention:  24 * time.Hour,
		Published:  m.OutboxPublished,
		Failed:     m.OutboxFailures,
	})
	go func() {
		if err := publisher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("event publisher: %w", err)
		}
	}()

	router := httpAdapter.NewRouter(newRouterConfig(cfg, log, routerDeps{
		transfers:      transferUC,
		entries:        usecase.NewEntryUseCase(entryRepo),
		ledger:         usecase.NewLedgerUseCase(postgresRepo.NewLedgerRepository(pool)),
		idempotency:    redisRepo.NewIdempotencyStore(redisClient),
		health:         handler.NewHealthHandler(pool, redisClient),
		metrics:        m,
		metricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	}))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("base_uri", cfg.BaseURI).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Error().Err(err).Msg("component failed, shutting down")
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

type routerDeps struct {
	transfers      handler.TransferService
	entries        *usecase.EntryUseCase
	ledger         *usecase.LedgerUseCase
	idempotency    usecase.IdempotencyStore
	health         *handler.HealthHandler
	metrics        *metrics.Metrics
	metricsHandler http.Handler
}

func newRouterConfig(cfg *config.Config, log zerolog.Logger, deps routerDeps) httpAdapter.RouterConfig {
	rc := httpAdapter.RouterConfig{
		TransferHandler:  handler.NewTransferHandler(deps.transfers, cfg.BaseURI),
		EntryHandler:     handler.NewEntryHandler(deps.entries),
		LedgerHandler:    handler.NewLedgerHandler(deps.ledger),
		HealthHandler:    deps.health,
		IdempotencyStore: deps.idempotency,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		Metrics:          deps.metrics,
		MetricsHandler:   deps.metricsHandler,
		Logger:           log,
	}

	if cfg.RateLimitRPS > 0 {
		rc.RateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	if cfg.AuthEnabled {
		rc.JWTManager = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	} else {
		log.Warn().Msg("authentication disabled, trusting the " + middleware.AccountHeader + " header")
	}

	return rc
}

// newSigner builds the receipt signer from the configured ed25519 key. Without
// a configured key an ephemeral one is generated.
func newSigner(cfg *config.Config, log zerolog.Logger) (*receipt.Signer, error) {
	if cfg.Ed25519SecretKey == "" {
		_, key, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		log.Warn().Msg("ED25519_SECRET_KEY not set, receipts are signed with an ephemeral key")
		return receipt.NewSigner(cfg.BaseURI, key)
	}

	signer, err := receipt.NewSignerFromBase64(cfg.BaseURI, cfg.Ed25519SecretKey)
	if err != nil {
		return nil, err
	}

	if cfg.Ed25519PublicKey != "" && cfg.Ed25519PublicKey != signer.PublicKey() {
		return nil, fmt.Errorf("%w: ED25519_PUBLIC_KEY does not match ED25519_SECRET_KEY", receipt.ErrInvalidKey)
	}

	return signer, nil
}

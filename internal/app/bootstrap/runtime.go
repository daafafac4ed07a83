package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cacheadapter "github.com/evibes/commerce/internal/adapters/cache"
	eventadapter "github.com/evibes/commerce/internal/adapters/events"
	"github.com/evibes/commerce/internal/adapters/gateway"
	httpadapter "github.com/evibes/commerce/internal/adapters/http"
	"github.com/evibes/commerce/internal/adapters/postgres"
	"github.com/evibes/commerce/internal/adapters/rates"
	"github.com/evibes/commerce/internal/adapters/vendors"
	"github.com/evibes/commerce/internal/application"
	"github.com/evibes/commerce/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	outbox     *eventadapter.OutboxWorker
	fulfilment *eventadapter.FulfilmentWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping commerce service", "http_port", cfg.HTTPPort, "gateway", cfg.GatewayName)

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	repos := postgres.NewRepositories(pool)
	ratesStore := cacheadapter.NewRedisRatesStore(redisClient)
	aggregates := cacheadapter.NewRedisAggregateStore(redisClient)
	limiter := cacheadapter.NewRedisRateLimiter(redisClient)

	paymentGateway := gateway.NewClient(gateway.Config{
		BaseURL: cfg.GatewayURL,
		Token:   cfg.GatewayToken,
		Timeout: cfg.UpstreamTimeout,
	})
	ratesProvider := rates.NewProvider(rates.Config{
		BaseURL:           cfg.RatesURL,
		CanonicalCurrency: cfg.CanonicalCurrency,
		Timeout:           cfg.UpstreamTimeout,
		TTL:               cfg.RatesTTL,
	}, ratesStore)
	registry := vendors.NewRegistry(
		vendors.NewTeemill(vendors.TeemillConfig{BaseURL: cfg.TeemillURL}),
	)

	holder := NewConfigHolder(cfg, configPath, logger)
	svc := application.NewService(application.Dependencies{
		ConfigFn:     holder.Snapshot,
		Users:        repos.Users,
		Catalog:      repos.Catalog,
		Promotions:   repos.Promotions,
		PromoCodes:   repos.PromoCodes,
		Balances:     repos.Balances,
		Transactions: repos.Transactions,
		Orders:       repos.Orders,
		Addresses:    repos.Addresses,
		Wishlists:    repos.Wishlists,
		Aggregates:   aggregates,
		Gateway:      paymentGateway,
		Callbacks: map[string]ports.CallbackDecoder{
			cfg.GatewayName: gateway.NewCallbackDecoder(),
		},
		Rates:    ratesProvider,
		Vendors:  registry,
		Resolver: vendors.NewResolver(repos.Catalog),
	})

	handler := httpadapter.NewHandler(svc, limiter, holder.Reload, []byte(cfg.JWTSecret))
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	outbox := eventadapter.NewOutboxWorker(
		logger,
		repos.Outbox,
		eventadapter.NewLoggingPublisher(logger),
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxClaimTTL,
		cfg.OutboxMaxRetries,
	)
	fulfilment := eventadapter.NewFulfilmentWorker(
		logger,
		svc,
		cfg.FulfilmentInterval,
		cfg.FulfilmentBatchSize,
	)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		outbox:     outbox,
		fulfilment: fulfilment,
		cleanupFn: func(ctx context.Context) {
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("outbox worker started")
		errCh <- r.outbox.Run(ctx)
	}()
	go func() {
		r.logger.Info("fulfilment worker started")
		errCh <- r.fulfilment.Run(ctx)
	}()

	err := <-errCh
	stop()
	<-errCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

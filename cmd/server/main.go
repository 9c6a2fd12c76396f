// Package main is the entry point for the spareflow API server.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"spareflow/internal/app"
	"spareflow/internal/config"
	"spareflow/internal/core/security"
	"spareflow/internal/domain/auth"
	v1 "spareflow/internal/infrastructure/http/v1"
	"spareflow/internal/infrastructure/cache"
	"spareflow/internal/infrastructure/metrics"
	"spareflow/internal/infrastructure/storage/memory"
	"spareflow/internal/infrastructure/storage/postgres"
	"spareflow/pkg/logger"
)

const idempotencyCleanupInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Development(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting spareflow server", "env", cfg.Server.Env)

	// --- Approval rule ---
	policy, err := security.CompileRule(cfg.Policy.IssueApprovalRule)
	if err != nil {
		log.Fatalw("invalid issue approval rule", "error", err)
	}

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	routerCfg := v1.RouterConfig{
		Logger:  log,
		Metrics: m,
		Debug:   cfg.Development(),
	}

	// --- Storage ---
	var storage app.Storage
	if cfg.InMemory() {
		storage = app.MemoryStorage(memory.NewStore())
		if cfg.Idempotency.Enabled {
			routerCfg.Idempotency = memory.NewIdempotencyStore(cfg.Idempotency.TTL)
		}
		log.Warn("running on the in-memory store, state is lost on exit")
	} else {
		poolCfg := postgres.DefaultPoolConfig(cfg.Database.URL)
		poolCfg.MaxConns = cfg.Database.MaxConns
		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			log.Fatalw("failed to connect to database", "error", err)
		}
		defer pool.Close()
		log.Info("database connection established")

		registry.MustRegister(metrics.NewPoolCollector(pool))
		routerCfg.Database = pool

		txOpts := postgres.DefaultTxOptions()
		txOpts.StatementTimeout = cfg.Database.StatementTimeout
		txm := postgres.NewTxManager(pool, txOpts)

		codec, err := postgres.NewChangesCodec(postgres.DefaultCompressThreshold)
		if err != nil {
			log.Fatalw("failed to create journal codec", "error", err)
		}
		storage = app.PostgresStorage(txm, codec)

		if cfg.Idempotency.Enabled {
			store := postgres.NewIdempotencyStore(txm, cfg.Idempotency.TTL)
			routerCfg.Idempotency = store
			go cleanupIdempotency(ctx, store, log)
		}
	}

	// --- Lookup cache ---
	if cfg.Redis.Enabled() {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warnw("redis unavailable, lookups go to storage", "addr", cfg.Redis.Addr, "error", err)
		} else {
			defer client.Close()
			lookups := cache.NewLookupCache(client, storage.Spares, storage.Technicians, cfg.Redis.TTL)
			storage.Spares = lookups
			storage.Technicians = lookups
			log.Infow("lookup cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
		}
	}

	// --- Auth ---
	if cfg.Auth.Enabled() {
		routerCfg.TokenValidator = auth.NewTokenService(auth.DefaultConfig(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer))
	} else {
		log.Warn("JWT_SECRET not set, bearer tokens are not validated")
	}

	routerCfg.Services = app.NewServices(storage, app.Options{Policy: policy, Observer: m})
	if err := routerCfg.Services.Statuses.Load(ctx); err != nil {
		log.Fatalw("failed to load status catalog", "error", err)
	}
	router := v1.NewRouter(routerCfg)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func cleanupIdempotency(ctx context.Context, store *postgres.IdempotencyStore, log *logger.Logger) {
	ticker := time.NewTicker(idempotencyCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.CleanupExpired(ctx)
			if err != nil {
				log.Warnw("idempotency cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				log.Debugw("expired idempotency keys removed", "count", n)
			}
		}
	}
}

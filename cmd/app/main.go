// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pi-subscription-backend/internal/config"
	"pi-subscription-backend/internal/domain/ports/adapter"
	"pi-subscription-backend/internal/infra/adapters/pinetwork"
	pg "pi-subscription-backend/internal/infra/db/postgres"
	"pi-subscription-backend/internal/infra/logging"
	"pi-subscription-backend/internal/infra/metrics"
	red "pi-subscription-backend/internal/infra/redis"
	"pi-subscription-backend/internal/infra/sched"
	"pi-subscription-backend/internal/infra/web"
	"pi-subscription-backend/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (in-memory payment network)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	if err := pg.RunMigrations(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}
	go pg.ReportPoolStats(ctx, pool, 30*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	locker := red.NewLocker(redisClient)
	subCache := red.NewSubscriptionCache(redisClient, cfg.Redis.TTL)

	// ---- Repositories ----
	accountRepo := pg.NewAccountRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	txRepo := pg.NewTransactionRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Payment network ----
	var network adapter.PaymentNetwork
	if cfg.Runtime.Dev && cfg.Pi.APIKey == "" {
		logger.Warn().Msg("no API key configured; using in-memory payment network")
		network = pinetwork.NewNoopGateway()
	} else {
		network, err = pinetwork.NewPiGateway(cfg.Pi.APIKey, cfg.Pi.BaseURL, cfg.Pi.Timeout)
		if err != nil {
			logger.Fatal().Err(err).Msg("payment gateway init failed")
		}
	}

	// ---- Use cases ----
	identityUC := usecase.NewIdentityUseCase(network, accountRepo, subRepo, txManager, usecase.IdentityOptions{
		AllowUsernameFallback: cfg.Identity.AllowUsernameFallback,
		SessionSecret:         []byte(cfg.Security.SessionSecret),
		SessionTTL:            cfg.Security.SessionTTL,
	}, logger)
	approvalUC := usecase.NewApprovalUseCase(network, logger)
	completionUC := usecase.NewCompletionUseCase(network, subRepo, txRepo, txManager, subCache, locker, logger)
	ledgerUC := usecase.NewLedgerUseCase(subRepo, txRepo, txManager, subCache, logger)

	// ---- Expiry worker (optional) ----
	if cfg.Scheduler.ExpirySweepInterval > 0 {
		worker := sched.NewExpiryWorker(cfg.Scheduler.ExpirySweepInterval, ledgerUC, logger)
		go func() { _ = worker.Run(ctx) }()
	}

	// ---- HTTP server ----
	srv := web.NewServer(identityUC, approvalUC, completionUC, ledgerUC, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	_ = redisClient.Close()
}

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

	"github.com/rs/zerolog"

	"dating-subscription-payments/internal/config"
	"dating-subscription-payments/internal/domain/model"
	"dating-subscription-payments/internal/domain/ports/adapter"
	payAdapters "dating-subscription-payments/internal/infra/adapters/payment"
	pg "dating-subscription-payments/internal/infra/db/postgres"
	"dating-subscription-payments/internal/infra/logging"
	"dating-subscription-payments/internal/infra/metrics"
	red "dating-subscription-payments/internal/infra/redis"
	"dating-subscription-payments/internal/infra/sched"
	"dating-subscription-payments/internal/infra/web"
	"dating-subscription-payments/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted phone numbers)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Repositories ----
	txRepo := pg.NewTransactionRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)

	// ---- Redis (optional dedupe fast path) ----
	var dedupe usecase.CallbackDeduper
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect failed")
		}
		defer redisClient.Close()
		dedupe = red.NewCallbackDedupe(redisClient, cfg.Redis.TTL)
	} else {
		logger.Warn().Msg("redis.url not set; callback dedupe fast path disabled")
	}

	// ---- Payment gateways ----
	callbackURL := cfg.Payment.CallbackBaseURL + web.CallbackRoute
	gateways := map[model.Provider]adapter.PaymentGateway{
		model.ProviderMpesa:  buildMpesaGateway(cfg, callbackURL, logger),
		model.ProviderAirtel: buildAirtelGateway(cfg, logger),
	}

	// ---- Use cases ----
	subUC := usecase.NewSubscriptionUseCase(subRepo, logger)
	paymentUC := usecase.NewPaymentUseCase(txRepo, gateways, logger)
	callbackUC := usecase.NewCallbackUseCase(txRepo, subUC, dedupe, logger)

	// ---- HTTP server ----
	srv := web.NewServer(paymentUC, callbackUC, subUC, cfg.Admin.APIKey, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Str("callback_url", callbackURL).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Stale-pending sweeper (operational hygiene, off by default) ----
	if cfg.Sweeper.Enabled {
		sweeper := sched.NewStaleSweeper(txRepo, cfg.Sweeper.Interval, cfg.Sweeper.StaleAfter, logger)
		go sweeper.Start(ctx)
	}

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
}

// buildMpesaGateway selects the live Daraja gateway when credentials are
// configured, the sandbox strategy otherwise. The choice is made once at
// startup, not per request.
func buildMpesaGateway(cfg *config.Config, callbackURL string, logger *zerolog.Logger) adapter.PaymentGateway {
	if !cfg.MpesaConfigured() {
		logger.Warn().Msg("mpesa credentials not configured, using sandbox gateway")
		return payAdapters.NewSandboxGateway(model.ProviderMpesa)
	}
	gw, err := payAdapters.NewMpesaGateway(cfg.Payment.Mpesa, callbackURL, cfg.Payment.RequestTimeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("mpesa gateway init failed")
	}
	return gw
}

func buildAirtelGateway(cfg *config.Config, logger *zerolog.Logger) adapter.PaymentGateway {
	if !cfg.AirtelConfigured() {
		logger.Warn().Msg("airtel credentials not configured, using sandbox gateway")
		return payAdapters.NewSandboxGateway(model.ProviderAirtel)
	}
	gw, err := payAdapters.NewAirtelGateway(cfg.Payment.Airtel, cfg.Payment.RequestTimeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("airtel gateway init failed")
	}
	return gw
}

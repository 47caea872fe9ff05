package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nhoon2002/Next-Replicate/internal/adapter/repo"
	"github.com/nhoon2002/Next-Replicate/internal/domain"
	"github.com/nhoon2002/Next-Replicate/internal/gateway"
	"github.com/nhoon2002/Next-Replicate/internal/http/handlers"
	httpapi "github.com/nhoon2002/Next-Replicate/internal/http/httpapi"
	"github.com/nhoon2002/Next-Replicate/internal/infra"
	"github.com/nhoon2002/Next-Replicate/internal/middleware"
	"github.com/nhoon2002/Next-Replicate/internal/providers/replicate"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogFile)

	ctx := context.Background()

	replicateClient, err := replicate.NewClient(replicate.Options{
		APIToken: cfg.ReplicateAPIToken,
		BaseURL:  cfg.ReplicateBaseURL,
		Logger:   &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build replicate client")
	}

	gw := gateway.New(gateway.Options{
		API:            replicateClient,
		WebhookBaseURL: cfg.PublicBaseURL,
		Logger:         &logger,
	})
	if gw.WebhookURL() == "" {
		logger.Info().Msg("no public base url configured; webhooks disabled, polling only")
	}

	var ledger domain.PredictionLedger
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()

		pg := repo.NewPredictionLedger(infra.NewSQLRunner(pool, logger))
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare predictions table")
		}
		ledger = pg
	}

	var limiter middleware.Limiter
	if cfg.RateLimitPerMin > 0 {
		if cfg.RedisURL != "" {
			rdb, err := infra.NewRedisClient(ctx, cfg.RedisURL)
			if err != nil {
				logger.Fatal().Err(err).Msg("failed to connect redis")
			}
			defer rdb.Close()
			limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimitPerMin, time.Minute)
		} else {
			limiter = middleware.NewMemoryLimiter(cfg.RateLimitPerMin, time.Minute)
		}
	}

	trustedProxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid trusted proxies")
	}

	if cfg.WebhookSigningSecret == "" {
		logger.Warn().Msg("no webhook signing secret configured; webhook callbacks are acknowledged but not recorded")
	}

	app := handlers.NewApp(gw, ledger, cfg.PollInterval, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		SubmitLimiter:  limiter,
		WebhookSecret:  cfg.WebhookSigningSecret,
		TrustedProxies: trustedProxies,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Bool("ledger", ledger != nil).
			Str("webhook", gw.WebhookURL()).
			Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

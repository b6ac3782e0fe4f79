package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-billing/internal/config"
	"github.com/noah-isme/backend-billing/internal/lock"
	"github.com/noah-isme/backend-billing/internal/obs"
	"github.com/noah-isme/backend-billing/internal/orderclient"
	"github.com/noah-isme/backend-billing/internal/resilience"
	"github.com/noah-isme/backend-billing/internal/submit"
)

func main() {
	cfg := config.MustLoad()

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "billing")
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	orderBreaker := resilience.NewBreaker(cfg.CircuitMinReq, cfg.CircuitFailRate, cfg.CircuitOpenFor).
		WithTarget("orders").
		WithLogger(logger)
	orderHTTP := &resilience.HTTPClient{
		Client:      &http.Client{Timeout: cfg.OutboundTimeout},
		Breaker:     orderBreaker,
		BaseBackoff: cfg.RetryBase,
		MaxAttempts: cfg.RetryMaxAttempts,
		Jitter:      cfg.RetryJitterPct,
		Timeout:     cfg.OutboundTimeout,
	}
	orders := orderclient.New(cfg.OrderServiceURL, cfg.OrderServiceAPIKey, orderHTTP)

	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	locker := lock.Locker{R: redisClient, RetryBackoff: cfg.LockRetryBackoff}

	worker := submit.Worker{
		Orders:  orders,
		Locks:   &locker,
		LockTTL: cfg.LockTTL,
		Logger:  logger,
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisOpts.Addr,
			Username: redisOpts.Username,
			Password: redisOpts.Password,
			DB:       redisOpts.DB,
		},
		asynq.Config{
			Concurrency: 5,
			Queues:      map[string]int{cfg.SubmitQueue: 1},
		},
	)
	mux := asynq.NewServeMux()
	worker.Register(mux)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("queue", cfg.SubmitQueue).Msg("worker starting")
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

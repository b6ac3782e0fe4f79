package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-billing/internal/billing"
	"github.com/noah-isme/backend-billing/internal/catalog"
	"github.com/noah-isme/backend-billing/internal/config"
	"github.com/noah-isme/backend-billing/internal/health"
	"github.com/noah-isme/backend-billing/internal/obs"
	"github.com/noah-isme/backend-billing/internal/orderclient"
	"github.com/noah-isme/backend-billing/internal/ratelimit"
	"github.com/noah-isme/backend-billing/internal/resilience"
	"github.com/noah-isme/backend-billing/internal/security"
	"github.com/noah-isme/backend-billing/internal/session"
	"github.com/noah-isme/backend-billing/internal/submit"
)

func main() {
	cfg := config.MustLoad()

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "billing")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "billing-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	outboundHTTP := &http.Client{Timeout: cfg.OutboundTimeout}
	orderBreaker := resilience.NewBreaker(cfg.CircuitMinReq, cfg.CircuitFailRate, cfg.CircuitOpenFor).
		WithTarget("orders").
		WithLogger(logger)
	catalogBreaker := resilience.NewBreaker(cfg.CircuitMinReq, cfg.CircuitFailRate, cfg.CircuitOpenFor).
		WithTarget("catalog").
		WithLogger(logger)

	orderHTTP := &resilience.HTTPClient{
		Client:      outboundHTTP,
		Breaker:     orderBreaker,
		BaseBackoff: cfg.RetryBase,
		MaxAttempts: cfg.RetryMaxAttempts,
		Jitter:      cfg.RetryJitterPct,
		Timeout:     cfg.OutboundTimeout,
	}
	catalogHTTP := &resilience.HTTPClient{
		Client:      outboundHTTP,
		Breaker:     catalogBreaker,
		BaseBackoff: cfg.RetryBase,
		MaxAttempts: cfg.RetryMaxAttempts,
		Jitter:      cfg.RetryJitterPct,
		Timeout:     cfg.OutboundTimeout,
	}

	orders := orderclient.New(cfg.OrderServiceURL, cfg.OrderServiceAPIKey, orderHTTP)
	catalogClient := &catalog.Client{
		BaseURL:  cfg.CatalogServiceURL,
		HTTP:     catalogHTTP,
		Redis:    redisClient,
		CacheTTL: cfg.CatalogCacheTTL,
	}
	sessions := &session.Store{R: redisClient, TTL: cfg.SessionTTL}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Username: redisOpts.Username,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task queue client")
		}
	}()
	enqueuer := submit.Enqueuer{
		Client:   asynqClient,
		Queue:    cfg.SubmitQueue,
		MaxRetry: cfg.SubmitMaxRetry,
	}

	billingHandler := &billing.Handler{
		Sessions: sessions,
		Orders:   orders,
		Catalog:  catalogClient,
		Submits:  enqueuer,
		Validate: validator.New(),
		Logger:   logger,
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: true}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:       readinessChecker{redis: redisClient, orders: orders},
		RedisTimeout:  300 * time.Millisecond,
		OrdersTimeout: cfg.HealthReadTimeout,
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	limiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient},
		Config:  ratelimit.Config{Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax},
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}
	r.Route("/v1/billing", func(v chi.Router) {
		v.Use(limiter.Middleware)
		billingHandler.Routes(v)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()
	health.SetReady(true)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		health.SetReady(false)
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	redis  *redis.Client
	orders *orderclient.Client
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func (c readinessChecker) PingOrders(ctx context.Context, timeout time.Duration) error {
	if c.orders == nil {
		return errors.New("order service not configured")
	}
	return c.orders.Ping(ctx, timeout)
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

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

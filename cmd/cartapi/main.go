package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-cartwidget/internal/cache"
	"github.com/noah-isme/toko-cartwidget/internal/cartapi"
	"github.com/noah-isme/toko-cartwidget/internal/config"
	"github.com/noah-isme/toko-cartwidget/internal/health"
	"github.com/noah-isme/toko-cartwidget/internal/lock"
	"github.com/noah-isme/toko-cartwidget/internal/obs"
	"github.com/noah-isme/toko-cartwidget/internal/ratelimit"
	"github.com/noah-isme/toko-cartwidget/internal/security"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(os.Stdout, cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	var httpMetrics *obs.HTTPMetrics
	if cfg.MetricsEnabled {
		obs.MustRegisterAPIMetrics(cfg.MetricsNamespace, nil)
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(os.Getenv("OBS_METRICS_BUCKETS_MS")), nil)
	}

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "toko-cartapi",
			Endpoint:      cfg.TracingEndpoint,
			SamplingRatio: cfg.TracingSamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
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
	if cfg.MetricsEnabled {
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
	checks := []health.Check{health.RedisCheck(redisClient)}

	var catalog cartapi.Catalog = cartapi.DemoCatalog()
	if cfg.DatabaseURL != "" {
		pool := connectCatalogDB(ctx, cfg.DatabaseURL, logger)
		defer pool.Close()
		catalog = cartapi.CachedCatalog{
			Next:   cartapi.NewPGCatalog(pool),
			Cache:  cache.New(redisClient, cfg.CatalogCacheTTL),
			Logger: logger,
		}
		checks = append(checks, health.DBCheck(pool))
	} else {
		logger.Warn().Msg("DATABASE_URL not set, serving the demo catalog")
	}

	service, err := cartapi.NewService(cartapi.ServiceConfig{
		Store:   cartapi.RedisStore{Client: redisClient, TTL: cfg.CartTTL},
		Catalog: catalog,
		Locker:  lock.Redis{Client: redisClient},
		LockTTL: cfg.LockTTL,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise cart service")
	}

	router := cartapi.NewRouter(cartapi.RouterConfig{
		Handler: cartapi.NewHandler(cartapi.HandlerConfig{
			Service:      service,
			CookieName:   cfg.SessionCookie,
			CookieSecure: cfg.CookieSecure,
			CookieMaxAge: cfg.CartTTL,
			Logger:       logger,
		}),
		Health:          health.Handler{Checks: checks},
		Logger:          logger,
		HTTPMetrics:     httpMetrics,
		Tracing:         tracingEnabled,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		SessionCookie:   cfg.SessionCookie,
		SecurityHeaders: security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: cfg.AppEnv == "production", HSTSMaxAge: 31536000},
		BodyLimit:       cfg.BodyLimitBytes,
		RateLimit: &ratelimit.Handler{
			Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:cart:"},
			Window:  cfg.RateLimitWindow,
			Max:     cfg.RateLimitMax,
			Logger:  logger,
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		health.SetReady(false)
		logger.Info().Msg("server draining")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	health.SetReady(true)
	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func connectCatalogDB(ctx context.Context, url string, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "toko-cartapi"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

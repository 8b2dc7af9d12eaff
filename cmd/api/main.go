package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/pasarhub/backend-pos/internal/auth"
	"github.com/pasarhub/backend-pos/internal/cart"
	"github.com/pasarhub/backend-pos/internal/catalog"
	"github.com/pasarhub/backend-pos/internal/common"
	"github.com/pasarhub/backend-pos/internal/config"
	"github.com/pasarhub/backend-pos/internal/db"
	"github.com/pasarhub/backend-pos/internal/health"
	"github.com/pasarhub/backend-pos/internal/lock"
	"github.com/pasarhub/backend-pos/internal/obs"
	"github.com/pasarhub/backend-pos/internal/queue"
	"github.com/pasarhub/backend-pos/internal/security"
	"github.com/pasarhub/backend-pos/internal/settlement"
	"github.com/pasarhub/backend-pos/internal/stock"
	"github.com/pasarhub/backend-pos/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "pos")
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("migrate database")
	}

	pool, err := db.Connect(connectCtx, cfg.DatabaseURL, "pos-api", logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(connectCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	st := postgres.New(pool)
	location := cfg.Location()

	authService, err := auth.NewService(auth.Config{
		Store:     st,
		Secret:    cfg.JWTSecret,
		AccessTTL: cfg.AccessTokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{Svc: authService, Users: st}
	authMiddleware := auth.Middleware{Service: authService}

	catalogService := catalog.NewService(st, catalog.NewCache(redisClient, cfg.CatalogCacheTTL))
	catalogHandler := &catalog.Handler{Svc: catalogService}

	stockService := &stock.Service{Store: st}
	stockHandler := &stock.Handler{Svc: stockService}

	cartService := &cart.Service{Store: st}
	cartHandler := &cart.Handler{Svc: cartService}

	settlementService := &settlement.Service{
		Store:    st,
		Locker:   &lock.Locker{R: redisClient},
		Enqueuer: &queue.Enqueuer{R: redisClient, Prefix: cfg.QueuePrefix},
		Location: location,
		Log:      logger,
	}
	settlementHandler := &settlement.Handler{Svc: settlementService}

	idem := common.Idem{R: redisClient, TTL: 24 * time.Hour}

	httpMetrics := obs.NewHTTPMetrics(metricsNamespace, obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", "")), nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
	r.Use(obs.RoutePatternMiddleware)
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		logger.Fatal().Err(err).Str("rate", cfg.RateLimit).Msg("parse rate limit")
	}
	limiterStore, err := limiterredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: "ratelimit"})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter store")
	}
	r.Use(limiterstdlib.NewMiddleware(limiter.New(limiterStore, rate)).Handler)

	r.Handle("/metrics", promhttp.Handler())

	healthHandler := health.Handler{Checker: readinessChecker{db: pool, redis: redisClient}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/auth", func(a chi.Router) {
			a.Post("/register", authHandler.Register)
			a.Post("/login", authHandler.Login)
			a.With(authMiddleware.RequireAuth).Get("/me", authHandler.Me)
		})

		v.Get("/categories", catalogHandler.ListCategories)
		v.Get("/categories/{id}", catalogHandler.GetCategory)
		v.Get("/items", catalogHandler.ListItems)
		v.Get("/items/{id}", catalogHandler.GetItem)
		v.Get("/items/sku/{sku}", catalogHandler.GetItemBySKU)

		v.Group(func(g chi.Router) {
			g.Use(authMiddleware.RequireAuth)

			g.Post("/categories", catalogHandler.CreateCategory)
			g.Put("/categories/{id}", catalogHandler.UpdateCategory)
			g.Delete("/categories/{id}", catalogHandler.DeleteCategory)
			g.Post("/items", catalogHandler.CreateItem)
			g.Put("/items/{id}", catalogHandler.UpdateItem)
			g.Delete("/items/{id}", catalogHandler.DeleteItem)

			g.Route("/stock", func(s chi.Router) {
				s.Post("/", stockHandler.Create)
				s.Get("/", stockHandler.List)
				s.Get("/{itemID}", stockHandler.Get)
				s.Put("/{itemID}", stockHandler.Update)
				s.Delete("/{itemID}", stockHandler.Delete)
				s.Get("/{itemID}/availability", stockHandler.Availability)
			})

			g.Route("/carts", func(c chi.Router) {
				c.Get("/{id}", cartHandler.Get)
				c.Group(func(m chi.Router) {
					m.Use(idem.Middleware)
					m.Post("/", cartHandler.Create)
					m.Post("/{id}/items", cartHandler.AddItem)
					m.Patch("/{id}/items/{itemId}", cartHandler.UpdateItem)
					m.Delete("/{id}/items/{itemId}", cartHandler.RemoveItem)
					m.Delete("/{id}/items", cartHandler.Clear)
				})
			})

			g.Route("/settlement", func(s chi.Router) {
				s.With(idem.Middleware).Post("/close", settlementHandler.Close)
				s.Get("/accounts", settlementHandler.List)
				s.Get("/accounts/{id}", settlementHandler.Get)
				s.Get("/accounts/date/{date}", settlementHandler.GetByDate)
				s.Get("/reports/top-items", settlementHandler.TopItems)
			})
		})
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

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
		return
	}

	health.SetReady(false)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown server")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
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

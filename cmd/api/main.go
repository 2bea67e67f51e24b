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
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-printhub/internal/audit"
	"github.com/noah-isme/backend-printhub/internal/auth"
	"github.com/noah-isme/backend-printhub/internal/binding"
	"github.com/noah-isme/backend-printhub/internal/common"
	"github.com/noah-isme/backend-printhub/internal/config"
	"github.com/noah-isme/backend-printhub/internal/events"
	"github.com/noah-isme/backend-printhub/internal/health"
	"github.com/noah-isme/backend-printhub/internal/notify"
	"github.com/noah-isme/backend-printhub/internal/obs"
	"github.com/noah-isme/backend-printhub/internal/order"
	"github.com/noah-isme/backend-printhub/internal/payment"
	"github.com/noah-isme/backend-printhub/internal/pricing"
	"github.com/noah-isme/backend-printhub/internal/ratelimit"
	"github.com/noah-isme/backend-printhub/internal/resilience"
	"github.com/noah-isme/backend-printhub/internal/security"
	"github.com/noah-isme/backend-printhub/internal/storage"
	"github.com/noah-isme/backend-printhub/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "printhub")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", false)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "printhub-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "printhub-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if tracingEnabled {
		if err := redisotel.InstrumentTracing(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
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

	st := store.New(pool)
	bus := events.NewBus(st, logger)

	taskClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()
	enqueuer := &notify.Enqueuer{Client: taskClient, Logger: logger}
	enqueuer.Subscribe(bus)

	authService, err := auth.NewService(auth.Config{
		Store:           st,
		Secret:          cfg.JWTSecret,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		Issuer:          cfg.JWTIssuer,
		Audience:        cfg.JWTAudience,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{
		Service:           authService,
		RefreshCookieName: envOrDefault("REFRESH_COOKIE_NAME", "ph_refresh"),
		CookieDomain:      envOrDefault("REFRESH_COOKIE_DOMAIN", ""),
		CookieSecure:      cfg.AppEnv != "development",
	}
	authMW := auth.Middleware{Service: authService}
	previewMW := auth.Middleware{Service: authService, AllowQueryToken: true}

	auditRec := audit.NewRecorder(st, logger)

	pricingService := pricing.NewService(st)
	pricingHandler := &pricing.Handler{Service: pricingService}
	pricingAdmin := &pricing.AdminHandler{Service: pricingService, Audit: auditRec}

	bindingService := binding.NewService(st)
	bindingHandler := &binding.Handler{Service: bindingService, Audit: auditRec}

	storageClient := storage.NewClient(cfg.StorageURL, cfg.StorageServiceKey, cfg.StorageBucket)

	orderService := order.NewService(order.NewPGStore(pool), storageClient, bus, cfg.MaxFilesPerOrder)
	orderHandler := &order.Handler{
		Service:        orderService,
		Storage:        storageClient,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	orderAdmin := &order.AdminHandler{Service: orderService}

	gatewayClient := resilience.WrapClient(
		&http.Client{Timeout: 10 * time.Second},
		resilience.NewBreaker(envInt("GATEWAY_BREAKER_MAX_FAILURES", 5), envDuration("GATEWAY_BREAKER_COOLDOWN", 30*time.Second)),
		"razorpay",
	)
	provider := payment.Razorpay{
		KeyID:         cfg.RazorpayKeyID,
		KeySecret:     cfg.RazorpayKeySecret,
		WebhookSecret: cfg.RazorpayWebhookSecret,
		BaseURL:       cfg.RazorpayBaseURL,
		HTTPClient:    gatewayClient,
	}
	paymentService := payment.NewService(st, provider, bus)
	paymentHandler := &payment.Handler{Service: paymentService}
	webhookHandler := payment.Webhook{
		Store:     st,
		Provider:  provider,
		Replay:    redisClient,
		ReplayTTL: cfg.WebhookReplayTTL,
		Bus:       bus,
		Logger:    logger,
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	limiterStore, err := ratelimit.NewStore(redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}
	loginLimit := ratelimit.Middleware(ratelimit.PerMinute(limiterStore, cfg.LoginRatePerMin), "login")
	guestLimit := ratelimit.Middleware(ratelimit.PerHour(limiterStore, cfg.GuestOrderPerHour), "guest-order")

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
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    envDuration("HEALTH_READY_DB_TIMEOUT", 500*time.Millisecond),
		RedisTimeout: envDuration("HEALTH_READY_REDIS_TIMEOUT", 300*time.Millisecond),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	jsonLimit := security.BodyLimit{Max: 1 << 20}

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/auth", func(a chi.Router) {
			a.Use(jsonLimit.Middleware)
			a.With(loginLimit).Post("/register", authHandler.Register)
			a.With(loginLimit).Post("/login", authHandler.Login)
			a.Post("/refresh", authHandler.Refresh)
			a.Post("/logout", authHandler.Logout)
			a.With(authMW.RequireAuth).Get("/me", authHandler.Me)
		})

		v.Get("/binding-types", bindingHandler.ListTypes)
		v.Get("/binding-prices", bindingHandler.ListRules)

		v.Route("/orders", func(o chi.Router) {
			o.With(jsonLimit.Middleware, authMW.Authenticate).Post("/calculate/price", pricingHandler.Quote)

			o.With(guestLimit, idem.Middleware).Post("/guest", orderHandler.CreateGuest)
			o.Get("/guest/{orderNumber}", orderHandler.GetGuest)

			o.Group(func(g chi.Router) {
				g.Use(authMW.RequireAuth)
				g.Get("/", orderHandler.List)
				g.With(idem.Middleware).Post("/", orderHandler.Create)
				g.Get("/{orderNumber}", orderHandler.Get)
				g.With(jsonLimit.Middleware).Patch("/{orderNumber}", orderHandler.Update)
				g.Delete("/{orderNumber}", orderHandler.Delete)
			})

			o.With(previewMW.RequireAuth).Get("/{orderNumber}/files/{fileID}/preview", orderHandler.Preview)
		})

		v.With(authMW.RequireAuth, authMW.RequireRole("admin", "employee")).
			Get("/employee/orders", orderAdmin.List)

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(jsonLimit.Middleware)
			admin.Use(authMW.RequireAuth)
			admin.Use(authMW.RequireRole("admin"))

			admin.Get("/printing-prices", pricingAdmin.List)
			admin.Post("/printing-prices", pricingAdmin.Create)
			admin.Get("/printing-prices/{id}", pricingAdmin.Get)
			admin.Put("/printing-prices/{id}", pricingAdmin.Update)
			admin.Delete("/printing-prices/{id}", pricingAdmin.Deactivate)

			admin.Post("/binding-types", bindingHandler.CreateType)
			admin.Put("/binding-types/{id}", bindingHandler.UpdateType)
			admin.Delete("/binding-types/{id}", bindingHandler.DeactivateType)

			admin.Post("/binding-prices", bindingHandler.CreateRule)
			admin.Put("/binding-prices/{id}", bindingHandler.UpdateRule)
			admin.Delete("/binding-prices/{id}", bindingHandler.DeactivateRule)
		})

		v.Route("/payments", func(p chi.Router) {
			p.Post("/webhook", webhookHandler.Handle)
			p.Group(func(g chi.Router) {
				g.Use(jsonLimit.Middleware, authMW.Authenticate)
				g.Post("/create-order", paymentHandler.CreateOrder)
				g.With(idem.Middleware).Post("/verify", paymentHandler.Verify)
			})
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer drainCancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
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

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

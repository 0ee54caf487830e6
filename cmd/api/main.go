package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/config"
	"github.com/noah-isme/backend-resto/internal/coupon"
	"github.com/noah-isme/backend-resto/internal/db"
	"github.com/noah-isme/backend-resto/internal/db/migrate"
	"github.com/noah-isme/backend-resto/internal/events"
	"github.com/noah-isme/backend-resto/internal/health"
	"github.com/noah-isme/backend-resto/internal/invoice"
	"github.com/noah-isme/backend-resto/internal/obs"
	"github.com/noah-isme/backend-resto/internal/order"
	"github.com/noah-isme/backend-resto/internal/payment"
	"github.com/noah-isme/backend-resto/internal/queue"
	"github.com/noah-isme/backend-resto/internal/ratelimit"
	"github.com/noah-isme/backend-resto/internal/security"
	"github.com/noah-isme/backend-resto/internal/tenant"
)

func main() {
	runMigrations := flag.Bool("migrate", false, "apply database migrations before serving")
	migrateOnly := flag.Bool("migrate-only", false, "apply database migrations and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	if *runMigrations || *migrateOnly {
		if err := migrate.Up(cfg.MigrationsPath, cfg.DatabaseURL, logger); err != nil {
			logger.Fatal().Err(err).Msg("migrate database")
		}
		if *migrateOnly {
			return
		}
	}

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "resto")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "resto-api",
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustInitDatabase(ctx, cfg.DatabaseURL, logger)
	defer pool.Close()
	store := db.NewStore(pool)
	queries := store.Q

	redisClient := mustInitRedis(ctx, cfg.RedisURL, metricsEnabled, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	taskQueue := queue.Enqueuer{
		R:           redisClient,
		Prefix:      cfg.QueueRedisPrefix,
		DedupTTL:    cfg.IdempotencyTTL,
		MaxAttempts: cfg.QueueMaxAttempts,
	}
	bus := &events.Bus{
		Store:      queries,
		Schedulers: []events.Scheduler{invoice.Scheduler{Queue: taskQueue, MaxAttempts: cfg.QueueMaxAttempts}},
	}
	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = events.Connect(cfg.NATSURL, "resto-api")
		if err != nil {
			logger.Error().Err(err).Msg("connect nats; events stay in the database only")
		} else {
			defer func() { _ = natsConn.Drain() }()
			bus.Notifiers = append(bus.Notifiers, &events.NATSNotifier{Conn: natsConn})
		}
	}

	couponSvc := &coupon.Service{Q: queries, Logger: logger.With().Str("svc", "coupon").Logger()}
	couponHandler := &coupon.Handler{Svc: couponSvc}

	orderSvc := &order.Service{
		Q:          queries,
		Tx:         store,
		Coupons:    couponSvc,
		Events:     bus,
		Logger:     logger.With().Str("svc", "order").Logger(),
		MaxRetries: cfg.LedgerMaxRetries,
		RetryBase:  cfg.LedgerRetryBase,
	}
	orderHandler := &order.Handler{Svc: orderSvc}

	paymentLogger := logger.With().Str("svc", "payment").Logger()
	var gateway payment.Gateway
	if cfg.Gateway.BaseURL != "" {
		httpGateway := payment.NewHTTPGateway(cfg.Gateway.BaseURL, cfg.Gateway.KeyID, cfg.Gateway.Secret,
			cfg.Gateway.Timeout, cfg.Gateway.MaxAttempts, cfg.Gateway.RetryBase)
		httpGateway.Client.Breaker.WithLogger(paymentLogger)
		gateway = httpGateway
	} else {
		logger.Warn().Msg("GATEWAY_BASE_URL not set; gateway order creation disabled")
	}
	paymentHandler := &payment.Handler{
		Svc: &payment.Service{
			Q:        queries,
			Gateway:  gateway,
			KeyID:    cfg.Gateway.KeyID,
			Currency: cfg.CurrencyCode,
			Logger:   paymentLogger,
		},
		Coordinator: &payment.Coordinator{
			Q:             queries,
			Tx:            store,
			Events:        bus,
			Logger:        paymentLogger,
			CaptureSecret: cfg.Gateway.Secret,
			WebhookSecret: cfg.Gateway.WebhookSecret,
		},
	}

	invoiceHandler := &invoice.Handler{Svc: &invoice.Service{
		Q:      queries,
		Tx:     store,
		Events: bus,
		Logger: logger.With().Str("svc", "invoice").Logger(),
		Zone:   cfg.BusinessZone,
	}}

	queueAdmin := &queue.AdminHandler{
		Store:             queue.NewStore(pool),
		Queue:             taskQueue,
		Logger:            logger,
		VisibilityTimeout: cfg.QueueVisibilityTimeout,
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL, Scope: func(r *http.Request) string {
		id, _ := tenant.FromContext(r.Context())
		return id
	}}
	couponLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "ratelimit:"},
		Config: ratelimit.Config{
			Key:    ratelimit.TenantClientKey("coupon-validate"),
			Window: cfg.CouponValidateWindow,
			Max:    cfg.CouponValidateRate,
		},
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}
	adminAuth := basicAuth(envOrDefault("ADMIN_BASIC_AUTH_USER", ""), envOrDefault("ADMIN_BASIC_AUTH_PASS", ""))

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
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{HSTSMaxAge: envInt("SECURE_HSTS_MAX_AGE", 0)}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", cfg.TenantHeader},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		r.Mount("/debug/pprof", basicAuth(envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", ""), envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", ""))(newPprofMux()))
	}

	healthHandler := health.Handler{
		Checker:       readinessChecker{db: pool, redis: redisClient, nats: natsConn},
		DBTimeout:     envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout:  envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
		BrokerTimeout: envDurationMillis("HEALTH_READY_NATS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(tenant.NewResolver(cfg.TenantHeader).Middleware)

		// Gateway webhooks carry no tenant header; the order is found by its
		// gateway order id.
		v.With(security.BodyLimit{Max: cfg.WebhookMaxBodyBytes}.Middleware).Post("/webhooks/payment", paymentHandler.Webhook)

		v.Group(func(t chi.Router) {
			t.Use(tenant.Require)

			t.Route("/orders", func(o chi.Router) {
				o.With(idem.Middleware).Post("/", orderHandler.Create)
				o.Get("/", orderHandler.List)
				o.Route("/{orderId}", func(one chi.Router) {
					one.Get("/", orderHandler.Get)
					one.Post("/items", orderHandler.AddItem)
					one.Patch("/items/{itemId}", orderHandler.UpdateItem)
					one.Delete("/items/{itemId}", orderHandler.RemoveItem)
					one.Patch("/status", orderHandler.PatchStatus)
					one.With(idem.Middleware).Post("/payments/gateway-order", paymentHandler.GatewayOrder)
					one.Get("/invoice", invoiceHandler.Get)
				})
			})

			t.With(couponLimit.Middleware).Post("/coupons/validate", couponHandler.Validate)
			t.With(adminAuth).Post("/coupons", couponHandler.Create)
			t.Post("/payments/capture", paymentHandler.Capture)
		})

		v.Route("/admin/queue", func(a chi.Router) {
			a.Use(adminAuth)
			a.Get("/dlq", queueAdmin.ListDLQ)
			a.Post("/dlq/replay", queueAdmin.ReplayDLQ)
			a.Get("/stats", queueAdmin.Stats)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), envDurationMillis("SHUTDOWN_TIMEOUT_MS", 15000))
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

func mustInitDatabase(ctx context.Context, url string, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "resto-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, url string, metrics bool, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
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
	nats  *nats.Conn
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

// PingBroker reports "ok" when NATS is not configured; events are still
// persisted and the API can serve.
func (c readinessChecker) PingBroker(_ context.Context, timeout time.Duration) error {
	if c.nats == nil {
		return nil
	}
	if status := c.nats.Status(); status != nats.CONNECTED {
		return fmt.Errorf("nats %s", status)
	}
	return c.nats.FlushTimeout(timeout)
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

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	return mux
}

// basicAuth guards operator routes. An empty user leaves the route open,
// which is only meant for local development.
func basicAuth(user, pass string) func(http.Handler) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	return func(handler http.Handler) http.Handler {
		if user == "" {
			return handler
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
				w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "operator credentials required", nil)
				return
			}
			handler.ServeHTTP(w, r)
		})
	}
}

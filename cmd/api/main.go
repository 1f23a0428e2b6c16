package main

import (
	"context"
	"crypto/subtle"
	"errors"
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
	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/egx-lab/backend-cotacao/internal/auth"
	"github.com/egx-lab/backend-cotacao/internal/cache"
	"github.com/egx-lab/backend-cotacao/internal/common"
	"github.com/egx-lab/backend-cotacao/internal/config"
	"github.com/egx-lab/backend-cotacao/internal/exchange"
	"github.com/egx-lab/backend-cotacao/internal/health"
	"github.com/egx-lab/backend-cotacao/internal/obs"
	"github.com/egx-lab/backend-cotacao/internal/pricing"
	"github.com/egx-lab/backend-cotacao/internal/quotation"
	"github.com/egx-lab/backend-cotacao/internal/ratelimit"
	"github.com/egx-lab/backend-cotacao/internal/sequence"
	"github.com/egx-lab/backend-cotacao/internal/supplier"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "cotacao")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "cotacao-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
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

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "cotacao-api"

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

	appCache := cache.New(redisClient)
	allocator := sequence.NewAllocator(sequence.NewPGStore(pool))
	validate := validator.New()

	authService, err := auth.NewService(auth.Config{
		Secret:     cfg.JWTSecret,
		SessionTTL: cfg.SessionTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{
		Service: authService,
		Users:   auth.NewPGUserStore(pool, allocator),
		Cookies: auth.CookieConfig{
			Name:     cfg.CookieName,
			Domain:   cfg.CookieDomain,
			Secure:   cfg.CookieSecure,
			SameSite: cfg.CookieSameSite,
		},
		Admin: auth.AdminCredentials{
			Login:        cfg.AdminLogin,
			Password:     cfg.AdminPassword,
			PasswordHash: cfg.AdminPasswordHash,
		},
		Validate: validate,
		Logger:   logger,
	}
	authMiddleware := auth.Middleware{Service: authService, Cookie: cfg.CookieName}

	bcb := exchange.NewBCBClient(cfg.PTAXEndpoint, cfg.PTAXFallbackRate, cfg.PTAXTimeout, logger)
	rateSource := exchange.NewCachedSource(bcb, appCache, cfg.PTAXCacheTTL, cfg.PTAXFallbackRate, logger)
	engine := pricing.NewEngine(rateSource)

	quotationService := quotation.NewService(quotation.NewPGRepo(pool), allocator, appCache, logger, cfg.QuotationExpiryDays, cfg.SummaryCacheTTL)
	quotationHandler := &quotation.Handler{Service: quotationService, Validate: validate, Logger: logger}

	supplierService := supplier.NewService(supplier.NewPGRepo(pool), quotationService, engine, allocator, authService,
		cfg.ClientOrigin, cfg.SupplierPasswordDays, logger)
	supplierHandler := &supplier.Handler{Service: supplierService, Validate: validate, Logger: logger}

	loginLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "cotacao:rl:login"},
		Config: ratelimit.Config{
			Key:    func(r *http.Request) string { return common.ClientIP(r) },
			Window: cfg.LoginRateWindow,
			Max:    cfg.LoginRateMax,
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("login rate limiter unavailable")
		},
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
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	globalRate, err := limiter.NewRateFromFormatted(cfg.GlobalRateLimit)
	if err != nil {
		logger.Fatal().Err(err).Str("rate", cfg.GlobalRateLimit).Msg("parse global rate limit")
	}
	globalStore, err := limiterredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: "cotacao:rl:global"})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise global rate limit store")
	}
	r.Use(limiterstdlib.NewMiddleware(limiter.New(globalStore, globalRate)).Handler)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      health.DepsChecker{Pool: pool, Redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/auth", func(a chi.Router) {
			a.With(loginLimit.Middleware).Post("/login", authHandler.Login)
			a.Post("/logout", authHandler.Logout)
			a.With(authMiddleware.RequireAdmin).Get("/me", authHandler.Me)
		})

		v.Route("/supplier", func(s chi.Router) {
			s.Get("/preview", supplierHandler.Preview)
			s.With(loginLimit.Middleware).Post("/login", supplierHandler.Login)

			s.Group(func(protected chi.Router) {
				protected.Use(authMiddleware.RequireSupplier)
				protected.Get("/quotation", supplierHandler.Quotation)
				protected.Post("/price", supplierHandler.Price)
				protected.Post("/observation", supplierHandler.Observation)
				protected.Post("/submit", supplierHandler.Submit)
			})
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireAdmin)

			admin.Route("/quotations", func(q chi.Router) {
				q.Post("/", quotationHandler.Create)
				q.Get("/", quotationHandler.List)
				q.Route("/{id}", func(one chi.Router) {
					one.Get("/", quotationHandler.Get)
					one.Patch("/", quotationHandler.Update)
					one.Delete("/", quotationHandler.Delete)
					one.Get("/summary", quotationHandler.Summary)
				})
			})

			admin.Route("/items/{id}", func(item chi.Router) {
				item.Patch("/target", quotationHandler.SetTarget)
				item.Patch("/quantities", quotationHandler.SetQuantities)
			})

			admin.Route("/access", func(a chi.Router) {
				a.Post("/", supplierHandler.CreateAccess)
				a.Get("/", supplierHandler.ListAccess)
				a.Delete("/{supplierId}", supplierHandler.DeleteAccess)
			})
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		health.SetReady(false)
		logger.Info().Msg("shutdown requested, draining")

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	<-shutdownDone
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) > 0 {
		return cfg.CORSAllowedOrigins
	}
	if cfg.ClientOrigin != "" {
		return []string{cfg.ClientOrigin}
	}
	return []string{"*"}
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
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/egx-lab/backend-cotacao/internal/cache"
	"github.com/egx-lab/backend-cotacao/internal/config"
	"github.com/egx-lab/backend-cotacao/internal/obs"
	"github.com/egx-lab/backend-cotacao/internal/quotation"
	"github.com/egx-lab/backend-cotacao/internal/sequence"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

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
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "cotacao-worker"

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
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	allocator := sequence.NewAllocator(sequence.NewPGStore(pool))
	quotationService := quotation.NewService(quotation.NewPGRepo(pool), allocator, cache.New(redisClient), logger,
		cfg.QuotationExpiryDays, cfg.SummaryCacheTTL)
	taskHandler := quotation.TaskHandler{Service: quotationService, Logger: logger}

	redisConn, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis uri for task queue")
	}

	scheduler := asynq.NewScheduler(redisConn, &asynq.SchedulerOpts{})
	cronspec := fmt.Sprintf("@every %s", cfg.ExpirySweepInterval)
	if _, err := scheduler.Register(cronspec, quotation.NewCloseExpiredTask()); err != nil {
		logger.Fatal().Err(err).Str("cronspec", cronspec).Msg("register expiry sweep")
	}
	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start scheduler")
	}
	defer scheduler.Shutdown()

	mux := asynq.NewServeMux()
	mux.HandleFunc(quotation.TaskCloseExpired, taskHandler.HandleCloseExpired)

	srv := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: envInt("WORKER_CONCURRENCY", 4),
	})

	logger.Info().Str("sweep_interval", cfg.ExpirySweepInterval.String()).Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
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

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		var parsed int
		if _, err := fmt.Sscanf(strings.TrimSpace(val), "%d", &parsed); err == nil {
			return parsed
		}
	}
	return fallback
}

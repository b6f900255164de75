package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"posmarket/internal/config"
	"posmarket/internal/infra"
	"posmarket/internal/repository"
	"posmarket/internal/router"
	"posmarket/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger (dev: pretty, prod: JSON)
	zerolog.TimeFieldFormat = time.RFC3339
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if cfg.RunMigrations {
		sqlDB, err := db.DB()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to get sql handle")
		}
		if err := infra.RunMigrations(sqlDB); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
		log.Info().Msg("migrations applied")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis only backs the async close report. Sales keep working without it.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, async jobs disabled")
			rdb = nil
		}
	}

	breaker := infra.NewCircuitBreaker(infra.DefaultBreakerConfig())
	mailer := infra.NewMailer(cfg, breaker)
	if !mailer.Enabled() {
		log.Warn().Msg("SMTP_HOST not set, close reports are only written to disk")
	}

	var dispatcher *worker.Dispatcher
	if rdb != nil {
		dispatcher = worker.NewDispatcher(rdb)

		pool := worker.NewPool(rdb)
		pool.Register(worker.QueueCierreCaja, worker.NewCierreWorker(
			repository.NewCajaRepository(db), dispatcher, cfg.PDFStoragePath, cfg.ReporteCierreEmail))
		pool.Register(worker.QueueEmail, worker.NewEmailWorker(mailer))
		pool.Start(ctx, cfg.WorkerPoolSize)

		worker.StartDLQReplay(ctx, worker.ReplayConfig{
			RDB:     rdb,
			Breaker: mailer.Breaker(),
			Queues:  []string{worker.QueueCierreCaja, worker.QueueEmail},
		})
	}

	r := router.New(cfg, db, rdb, breaker, dispatcher)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Int("port", cfg.Port).Str("env", cfg.Env).Msg("posmarket listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server exited")
}

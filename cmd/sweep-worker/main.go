package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/booking/internal/booking"
	"github.com/clinicdesk/booking/internal/catalog"
	"github.com/clinicdesk/booking/internal/config"
	"github.com/clinicdesk/booking/internal/db"
	redisclient "github.com/clinicdesk/booking/internal/redis"
)

// sweep-worker cancels appointments that stayed in scheduled past their slot
// time, freeing the history view for admins without touching confirmed ones.
func main() {
	cfg, err := config.Load()
	if err != nil {
		errLogger := zerolog.New(os.Stderr)
		errLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", "sweep-worker").Logger()
	logger.Info().Str("env", cfg.Env).Dur("interval", cfg.WorkerInterval).Msg("sweep-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	rdb, err := redisclient.New(redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()

	repo := booking.NewPgRepository(pgPool)
	source := catalog.NewPgSource(pgPool)
	locker := redisclient.NewSlotLocker(rdb, cfg.LockTTL)
	svc := booking.NewService(repo, locker, source, cfg.Location(), logger)

	// Run once at startup
	runOnce(rootCtx, svc, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping sweep worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := svc.SweepLapsed(runCtx); err != nil {
		logger.Error().Err(err).Msg("sweep run error")
		return
	}
	logger.Info().Dur("took", time.Since(start)).Msg("sweep run complete")
}

package main

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/booking/internal/config"
	"github.com/clinicdesk/booking/internal/db"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", "migrate").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}

	if err := db.MigrateUp(cfg.PostgresDSN); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	logger.Info().Msg("schema up to date")
}

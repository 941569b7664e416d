package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/phonginreallife/contracthub/db"
	"github.com/phonginreallife/contracthub/internal/bootstrap"
	"github.com/phonginreallife/contracthub/internal/config"
	"github.com/phonginreallife/contracthub/internal/logger"
)

func main() {
	if err := config.LoadConfig(os.Getenv("CONTRACTHUB_CONFIG_PATH")); err != nil {
		stderrLog := zerolog.New(os.Stderr)
		stderrLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.Setup(config.App.Dev)

	ctx, cancel := context.WithTimeout(log.WithContext(context.Background()), 5*time.Minute)
	defer cancel()

	pg, err := bootstrap.OpenPostgres(ctx, config.App.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}
	defer pg.Close()

	log.Info().Msg("running migrations")
	if err := db.Migrate(ctx, pg); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Msg("migrations applied successfully")
}

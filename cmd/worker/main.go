package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/phonginreallife/contracthub/authz"
	"github.com/phonginreallife/contracthub/internal/bootstrap"
	"github.com/phonginreallife/contracthub/internal/config"
	"github.com/phonginreallife/contracthub/internal/logger"
	"github.com/phonginreallife/contracthub/services"
	"github.com/phonginreallife/contracthub/workers"
)

// concurrency is the number of export jobs processed in parallel
const concurrency = 2

func main() {
	// Load Config
	if err := config.LoadConfig(os.Getenv("CONTRACTHUB_CONFIG_PATH")); err != nil {
		stderrLog := zerolog.New(os.Stderr)
		stderrLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.Setup(config.App.Dev)
	zerolog.DefaultContextLogger = &log
	log.Info().Msg("starting workers")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.WithContext(ctx)

	pg, err := bootstrap.OpenPostgres(ctx, config.App.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}
	defer pg.Close()

	rdb, err := bootstrap.OpenRedis(ctx, config.App.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("redis unavailable")
	}
	defer rdb.Close()

	store, err := services.NewExportStore(ctx, config.App.Export, config.App.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize export storage")
	}

	// Initialize services
	backend := authz.NewSimpleBackend(pg)
	exports := services.NewExportService(backend.Authorizer, services.NewRedisExportQueue(rdb), store, config.App.Export.JobTTL)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		worker := workers.NewExportWorker(exports, backend.Contracts, log.With().Int("slot", i).Logger())
		g.Go(func() error {
			return worker.Run(gctx)
		})
	}

	log.Info().Int("concurrency", concurrency).Msg("workers started, press Ctrl+C to stop")
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("worker stopped with error")
	}
	log.Info().Msg("workers shut down")
}

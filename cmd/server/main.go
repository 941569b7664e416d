package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/phonginreallife/contracthub/authz"
	"github.com/phonginreallife/contracthub/internal/bootstrap"
	"github.com/phonginreallife/contracthub/internal/config"
	"github.com/phonginreallife/contracthub/internal/logger"
	"github.com/phonginreallife/contracthub/router"
	"github.com/phonginreallife/contracthub/services"
)

func main() {
	// Load Config
	if err := config.LoadConfig(os.Getenv("CONTRACTHUB_CONFIG_PATH")); err != nil {
		stderrLog := zerolog.New(os.Stderr)
		stderrLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.Setup(config.App.Dev)
	zerolog.DefaultContextLogger = &log
	if !config.App.Dev {
		gin.SetMode(gin.ReleaseMode)
	}

	if config.App.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET environment variable (or config) is required")
	}

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
	jwtService := services.NewJWTService(config.App.JWTSecret, config.App.AccessTokenTTL, config.App.RefreshTokenTTL)

	deps := router.Deps{
		PG:            pg,
		Redis:         rdb,
		Backend:       backend,
		Contracts:     authz.NewContractService(backend.Authorizer, backend.Roles, backend.Contracts, backend.Users, backend.Organizations, backend.Tx),
		Organizations: authz.NewOrganizationService(backend.Organizations, backend.Users),
		Auth:          services.NewAuthService(backend.Users, jwtService),
		Exports:       services.NewExportService(backend.Authorizer, services.NewRedisExportQueue(rdb), store, config.App.Export.JobTTL),
	}

	srv := &http.Server{
		Addr:              ":" + config.App.Port,
		Handler:           router.WithCORS(config.App.CORSOrigins, router.NewGinRouter(deps, log)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

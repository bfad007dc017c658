package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wasgate/internal/app"
	"wasgate/internal/app/config"
	"wasgate/internal/app/server"
	"wasgate/internal/http/router"
	"wasgate/internal/infra/database"
	"wasgate/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	log := logger.Setup(cfg).WithComponent("main")

	log.WithFields(map[string]interface{}{
		"env":  cfg.App.Env,
		"port": cfg.App.Port,
	}).Info().Msg("Starting Wasgate API")

	db, err := database.NewDatabase(cfg.GetDatabaseDSN(), cfg.App.Env == "development", log)
	if err != nil {
		log.WithError(err).Fatal().Msg("Failed to connect to database")
	}

	if err := database.RunMigrations(db); err != nil {
		log.WithError(err).Fatal().Msg("Failed to run migrations")
	}
	log.Info().Msg("Database ready")

	container, err := app.NewContainer(cfg, db, logger.Setup(cfg))
	if err != nil {
		log.WithError(err).Fatal().Msg("Failed to initialize container")
	}

	if err := container.ObjectStore.EnsureBucket(context.Background()); err != nil {
		log.WithError(err).Fatal().Msg("Failed to ensure session bucket")
	}

	// Reagenda a restauração das sessões que estavam conectadas
	if err := container.Reconciler.Run(context.Background()); err != nil {
		log.WithError(err).Error().Msg("Startup reconciliation failed")
	}

	handler := router.New(
		cfg,
		container.Logger,
		container.HealthHandler,
		container.SessionHandler,
		container.MessageHandler,
		container.WalletHandler,
		container.WebhookHandler,
		container.SubscriptionHandler,
		container.SettingsHandler,
		container.StrengthHandler,
		container.V1Handler,
		container.APIKeyRepo,
	)

	srv := server.New(cfg, handler, log)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			log.WithError(err).Fatal().Msg("Failed to start server")
		}
	}()

	log.Info().Msg("Wasgate API started successfully")

	<-stop
	log.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), srv.ShutdownTimeout())
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		log.WithError(err).Error().Msg("Failed to stop server gracefully")
	}
	if err := container.Close(ctx); err != nil {
		log.WithError(err).Error().Msg("Failed to close container")
	}

	log.Info().Msg("Wasgate API stopped")
}

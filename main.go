package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/paytrack-be/internal/api"
	"github.com/isdelr/paytrack-be/internal/auth"
	"github.com/isdelr/paytrack-be/internal/backup"
	"github.com/isdelr/paytrack-be/internal/config"
	"github.com/isdelr/paytrack-be/internal/database"
	"github.com/isdelr/paytrack-be/internal/logger"
	"github.com/isdelr/paytrack-be/internal/scheduler"
	"github.com/isdelr/paytrack-be/internal/services"
	"github.com/isdelr/paytrack-be/internal/telemetry"
	"github.com/rs/zerolog/log"
)

const serviceName = "paytrack"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OtelEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracing")
	}

	// Set up database
	db, err := database.New(ctx, cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up services
	userService := services.NewUserService(db)
	projectService := services.NewProjectService(db)
	paymentService := services.NewPaymentService(db)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	// Set up and run the background scheduler
	sched := scheduler.New(10 * time.Minute)
	if cfg.BackupCron != "" {
		var uploader backup.Uploader
		if cfg.S3Enabled() {
			s3Uploader, err := backup.NewS3Uploader(ctx, backup.S3Options{
				Bucket:    cfg.S3Bucket,
				Region:    cfg.S3Region,
				Endpoint:  cfg.S3Endpoint,
				AccessKey: cfg.S3AccessKey,
				SecretKey: cfg.S3SecretKey,
			})
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to initialize S3 client")
			}
			uploader = s3Uploader
		}

		backupService := backup.NewService(db, cfg.BackupPath, uploader)
		err := sched.Add("database-backup", cfg.BackupCron, func(ctx context.Context) error {
			_, err := backupService.Run(ctx)
			return err
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule backups")
		}
	}
	sched.Start()

	// Set up router
	router := api.NewRouter(cfg, tokens, db, userService, projectService, paymentService)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           telemetry.Middleware(serviceName)(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.AppEnv).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to flush traces")
	}

	log.Info().Msg("Server exiting")
}

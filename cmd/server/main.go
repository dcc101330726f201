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
	"github.com/sirupsen/logrus"

	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/documentstore"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/redaction"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/representation"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/review"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/router"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/staging"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/config"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/database"
)

// Version information (set by build script)
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	// Set Gin to release mode by default (can be overridden by GIN_MODE env var)
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	logger.WithFields(logrus.Fields{
		"version":    version,
		"build_date": buildDate,
	}).Info("Starting Representation Review Server...")

	// Priority: CONFIG_PATH env var > repository/conf/deployment.yaml > cmd/server/repository/conf/deployment.yaml
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	configureLogger(logger, &cfg.Logging)

	logger.WithFields(logrus.Fields{
		"config_path": configPath,
		"log_level":   logger.GetLevel().String(),
	}).Info("Configuration loaded successfully")

	db, err := database.Initialize(&cfg.Database.Review, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.HealthCheck(ctx); err != nil {
		logger.WithError(err).Fatal("Database health check failed")
	}
	logger.Info("Database connection established successfully")

	checks := map[string]router.HealthCheck{"database": db.HealthCheck}

	stagingStore, closeStaging := newStagingStore(cfg, logger, checks)
	defer closeStaging()

	// A nil interface keeps uploads and document reconciliation switched off
	var documents documentstore.DocumentStore
	if cfg.DocumentStore.Enabled {
		s3Store, err := documentstore.NewS3Store(context.Background(), &cfg.DocumentStore, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize document store")
		}
		documents = s3Store
		logger.WithField("bucket", cfg.DocumentStore.Bucket).Info("Document store initialized")
	}

	var detector redaction.Detector
	if cfg.Redaction.Enabled {
		detector = redaction.NewClient(&cfg.Redaction, logger)
	}
	suggester := redaction.NewEngine(detector, redaction.Options{
		ChunkSize:  cfg.Redaction.ChunkSize,
		BatchSize:  cfg.Redaction.BatchSize,
		MaxBatches: cfg.Redaction.MaxBatches,
		Threshold:  cfg.Redaction.ConfidenceThreshold,
		Language:   cfg.Redaction.Language,
		Categories: cfg.Redaction.Categories,
		Timeout:    cfg.Redaction.Timeout,
	}, logger)
	logger.WithField("enabled", suggester.Enabled()).Info("Redaction suggestions initialized")

	reviewService := review.NewReviewService(
		representation.NewStore(db),
		stagingStore,
		documents,
		suggester,
		review.SettingsFromConfig(&cfg.Review),
		logger,
	)

	ginRouter := router.SetupRouter(reviewService, cfg, checks, logger)

	serverAddr := cfg.Server.GetServerAddress()
	server := &http.Server{
		Addr:           serverAddr,
		Handler:        ginRouter,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"hostname": cfg.Server.Hostname,
			"port":     cfg.Server.Port,
			"addr":     serverAddr,
		}).Info("Starting HTTP server...")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	db.LogStats()
	logger.Info("Server exited gracefully")
}

func configureLogger(logger *logrus.Logger, cfg *config.LoggingConfig) {
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	}
}

// newStagingStore selects the staging backend and registers its health check
func newStagingStore(cfg *config.Config, logger logrus.FieldLogger, checks map[string]router.HealthCheck) (staging.Store, func()) {
	if cfg.Staging.Backend == "memory" {
		logger.Warn("Using in-memory staging store, review progress is lost on restart")
		return staging.NewMemoryStore(), func() {}
	}

	redisStore, err := staging.NewRedisStore(cfg.Staging.RedisURL, cfg.Staging.KeyPrefix, cfg.Staging.TTL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize staging store")
	}
	checks["staging"] = redisStore.Ping
	logger.Info("Redis staging store initialized")

	return redisStore, func() {
		if err := redisStore.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close staging store")
		}
	}
}

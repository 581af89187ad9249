package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/peerview/backend/internal/api"
	"github.com/peerview/backend/internal/auth"
	"github.com/peerview/backend/internal/config"
	"github.com/peerview/backend/internal/domain"
	"github.com/peerview/backend/internal/fcm"
	"github.com/peerview/backend/internal/repository"
	"github.com/peerview/backend/internal/storage"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Starting PeerView API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	ctx := context.Background()
	db, err := initDatabase(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Connected to database")

	// Initialize dependencies
	repo := repository.NewPostgresRepository(db)
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)
	googleAuth := auth.NewGoogleAuthVerifier(cfg.Google.ClientID)

	if cfg.Google.ClientID == "" {
		logger.Warn("Google sign-in is NOT configured - set GOOGLE_CLIENT_ID to enable")
	}

	fcmClient, err := fcm.NewClient(ctx, logger, cfg.FCM.CredentialsFile)
	if err != nil {
		logger.Warn("Failed to initialize Firebase client - push notifications will be disabled", zap.Error(err))
		fcmClient = nil
	} else {
		logger.Info("Firebase client initialized")
	}

	fileStorage, err := initStorage(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize file storage", zap.Error(err))
	}

	// Realtime relay
	relay := api.NewRelay(logger)
	go relay.Run()

	// Initialize services
	authService := domain.NewAuthService(repo, jwtManager, googleAuth, fileStorage)
	notificationService := domain.NewNotificationService(repo, repo, relay, fcmClient, logger)
	cohortService := domain.NewCohortService(repo, fileStorage)
	publicationService := domain.NewPublicationService(repo, fileStorage)
	reviewService := domain.NewReviewService(repo)

	// Initialize handlers
	authHandler := api.NewAuthHandler(authService, notificationService, logger)
	googleOAuthHandler := api.NewGoogleOAuthHandler(cfg, authService, notificationService, logger)
	notificationHandler := api.NewNotificationHandler(notificationService, logger)
	cohortHandler := api.NewCohortHandler(cohortService, logger)
	publicationHandler := api.NewPublicationHandler(publicationService, logger)
	reviewHandler := api.NewReviewHandler(reviewService, logger)
	healthHandler := api.NewHealthHandler(db)

	router := api.NewRouter(
		authHandler,
		googleOAuthHandler,
		notificationHandler,
		cohortHandler,
		publicationHandler,
		reviewHandler,
		healthHandler,
		relay,
		jwtManager,
		logger,
	)
	r := router.Setup()

	// Start cleanup worker
	cleanupCtx, cleanupCancel := context.WithCancel(ctx)
	repo.StartCleanupWorker(cleanupCtx, 1*time.Hour)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	cleanupCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func initLogger() (*zap.Logger, error) {
	env := os.Getenv("ENV")
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func initDatabase(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func initStorage(ctx context.Context, cfg *config.Config) (storage.FileStorage, error) {
	if cfg.Storage.Type == "s3" {
		return storage.NewS3Storage(ctx, cfg.Storage)
	}
	return storage.NewLocalFileStorage(cfg.Storage.LocalPath, cfg.Storage.LocalBaseURL)
}

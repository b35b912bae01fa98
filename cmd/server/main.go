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

	"github.com/nearmi/localhunt-backend/config"
	"github.com/nearmi/localhunt-backend/internal/app/controller"
	"github.com/nearmi/localhunt-backend/internal/app/repository"
	"github.com/nearmi/localhunt-backend/internal/app/repository/docstore"
	"github.com/nearmi/localhunt-backend/internal/app/service"
	"github.com/nearmi/localhunt-backend/internal/db"
	"github.com/nearmi/localhunt-backend/internal/middleware"
	"github.com/nearmi/localhunt-backend/internal/router"
	"github.com/nearmi/localhunt-backend/internal/scheduler"
	"github.com/nearmi/localhunt-backend/internal/storage"
	"github.com/nearmi/localhunt-backend/internal/websocket"
	"github.com/nearmi/localhunt-backend/pkg/logger"
	"github.com/nearmi/localhunt-backend/pkg/redis"
	"github.com/nearmi/localhunt-backend/pkg/util"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting LocalHunt Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
		"firestore":   cfg.Firestore.Enabled,
		"redis":       cfg.Redis.Enabled,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	conn, err := db.Open(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(conn); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(conn); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Initialize repositories. Users and chat always live in Postgres;
	// vendors and reviews move to Firestore when it is enabled.
	userRepo := repository.NewUserRepository(conn)
	chatRepo := repository.NewChatRepository(conn)
	vendorRepo := repository.NewVendorRepository(conn)
	reviewRepo := repository.NewReviewRepository(conn)

	if cfg.Firestore.Enabled {
		client, err := docstore.NewClient(ctx, cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile)
		if err != nil {
			logger.Fatal("Failed to initialize Firestore", err)
		}
		defer client.Close()

		vendorRepo = docstore.NewVendorRepository(client)
		reviewRepo = docstore.NewReviewRepository(client)
	}

	// Optional infrastructure
	var (
		blacklist service.TokenBlacklist
		views     service.ViewDeduper
		geocoder  util.Geocoder
		uploader  service.ImageUploader
		uploadCtl *controller.UploadController
	)

	if cfg.Redis.Enabled {
		store, err := redis.New(&cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without token revocation and view dedupe", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer store.Close()
			blacklist = store
			views = store
		}
	}

	if cfg.Maps.GoogleAPIKey != "" {
		g, err := util.NewGoogleGeocoder(cfg.Maps.GoogleAPIKey)
		if err != nil {
			logger.Warn("Geocoder disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			geocoder = g
		}
	}

	if cfg.S3.AccessKeyID != "" && cfg.S3.Bucket != "" {
		s3 := storage.NewS3Storage(cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, cfg.S3.BaseURL)
		uploader = s3
		uploadCtl = controller.NewUploadController(s3)
	} else {
		logger.Warn("S3 credentials not set, image uploads disabled")
	}

	// Realtime hub
	hub := websocket.NewHub()
	go hub.Run(ctx)

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		blacklist,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	ratingService := service.NewRatingService(vendorRepo)
	vendorService := service.NewVendorService(vendorRepo, reviewRepo, userRepo, geocoder, uploader, views, cfg.Search)
	reviewService := service.NewReviewService(reviewRepo, vendorRepo, ratingService)
	chatService := service.NewChatService(chatRepo, vendorRepo, hub)

	// Scheduler
	if cfg.Scheduler.RatingRecomputeSpec != "" {
		ratingScheduler := scheduler.NewRatingScheduler(ratingService, cfg.Scheduler.RatingRecomputeSpec)
		if err := ratingScheduler.Start(); err != nil {
			logger.Fatal("Failed to start rating scheduler", err)
		}
		defer ratingScheduler.Stop()
	}

	// Initialize controllers
	r := router.NewRouter(
		controller.NewAuthController(authService),
		controller.NewVendorController(vendorService, cfg.Upload),
		controller.NewReviewController(reviewService, authService),
		controller.NewChatController(chatService, hub, cfg.CORS.AllowedOrigins),
		controller.NewAdminController(vendorService, reviewService, ratingService),
		uploadCtl,
		middleware.NewAuthMiddleware(cfg.JWT.Secret, authService),
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	logger.Info("Server stopped successfully")
}

// @title SABO Arena API
// @version 1.0
// @description Billiards club backend: ranks, stake challenges with handicaps, tournaments and moderation.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/Dosada05/sabo-arena/brackets"
	"github.com/Dosada05/sabo-arena/config"
	"github.com/Dosada05/sabo-arena/db"
	"github.com/Dosada05/sabo-arena/handlers"
	"github.com/Dosada05/sabo-arena/middleware"
	"github.com/Dosada05/sabo-arena/repositories"
	api "github.com/Dosada05/sabo-arena/routes"
	"github.com/Dosada05/sabo-arena/services"
	"github.com/Dosada05/sabo-arena/storage"
)

const (
	shutdownTimeout = 15 * time.Second
	// Login and registration: a burst of 5, then one attempt every 6 seconds per address.
	authRateEvery = 6 * time.Second
	authRateBurst = 5
	limiterIdle   = 10 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.Bool("storage_enabled", cfg.StorageEnabled()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Connect(ctx, cfg.DatabaseURL, db.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnectTimeout:  cfg.DBConnectTimeout,
	})
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	migrator := db.NewMigrator(dbConn)
	if cfg.RunMigrations {
		version, err := migrator.Up(ctx)
		if err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied", slog.Int64("version", version))
	}

	uploader := storage.NewDisabledUploader()
	if cfg.StorageEnabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 settings incomplete, file uploads are disabled")
	}

	wsHub := brackets.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	rankRepo := repositories.NewPostgresRankRequestRepository(dbConn)
	challengeRepo := repositories.NewPostgresChallengeRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	ratingRepo := repositories.NewPostgresRatingRepository(dbConn)
	penaltyRepo := repositories.NewPostgresPenaltyRepository(dbConn)
	transactor := repositories.NewSQLTransactor(dbConn)

	authService := services.NewAuthService(userRepo, cfg.JWTSecretKey, logger)
	userService := services.NewUserService(userRepo, ratingRepo, uploader, logger)
	rankService := services.NewRankService(rankRepo, userRepo, transactor, uploader, wsHub, logger)
	challengeService := services.NewChallengeService(challengeRepo, userRepo, ratingRepo, transactor, wsHub, cfg.ChallengeTTL, logger)
	tournamentService := services.NewTournamentService(tournamentRepo, matchRepo, userRepo, ratingRepo, transactor, uploader, wsHub, logger)
	adminService := services.NewAdminService(userRepo, penaltyRepo, ratingRepo, transactor, migrator, uploader, wsHub, logger)
	dashboardService := services.NewDashboardService(userRepo, tournamentRepo, challengeRepo, rankRepo, penaltyRepo)

	scheduler, err := services.NewScheduler(challengeService, tournamentService, cfg.SchedulerInterval, logger)
	if err != nil {
		logger.Error("failed to create scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	if err := scheduler.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("scheduler started", slog.Duration("interval", cfg.SchedulerInterval))

	authLimiter := middleware.NewIPRateLimiter(rate.Every(authRateEvery), authRateBurst)
	go func() {
		ticker := time.NewTicker(limiterIdle)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := authLimiter.Cleanup(limiterIdle); n > 0 {
					logger.Debug("rate limiter buckets dropped", slog.Int("count", n))
				}
			}
		}
	}()

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Auth:       handlers.NewAuthHandler(authService),
		User:       handlers.NewUserHandler(userService),
		Challenge:  handlers.NewChallengeHandler(challengeService),
		Tournament: handlers.NewTournamentHandler(tournamentService),
		Rank:       handlers.NewRankHandler(rankService),
		Admin:      handlers.NewAdminHandler(adminService),
		Dashboard:  handlers.NewDashboardHandler(dashboardService),
		WebSocket:  handlers.NewWebSocketHandler(wsHub, cfg.CORSAllowedOrigins, logger),
	}, api.Options{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AuthLimiter:    authLimiter,
		Logger:         logger,
	})
	logger.Info("Routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("failed to force close server", slog.Any("error", closeErr))
		}
	}
	if err := scheduler.Shutdown(); err != nil {
		logger.Error("scheduler shutdown failed", slog.Any("error", err))
	}
	logger.Info("application exited")
}

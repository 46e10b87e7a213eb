package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/clantools/bingo-system/chat"
	"github.com/clantools/bingo-system/config"
	"github.com/clantools/bingo-system/db"
	"github.com/clantools/bingo-system/handlers"
	"github.com/clantools/bingo-system/live"
	"github.com/clantools/bingo-system/middleware"
	"github.com/clantools/bingo-system/repositories"
	api "github.com/clantools/bingo-system/routes"
	"github.com/clantools/bingo-system/services"
	"github.com/clantools/bingo-system/storage"
)

const wizardStepTimeout = 5 * time.Minute

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
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

	uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize object storage uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("object storage uploader initialized")

	notifier, err := chat.NewRelayNotifier(chat.RelayConfig{
		BaseURL:   cfg.BridgeBaseURL,
		AuthToken: cfg.BridgeAuthToken,
	})
	if err != nil {
		logger.Error("failed to initialize chat relay notifier", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("chat relay notifier initialized")

	wsHub := live.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket hub started")

	txRunner := repositories.NewTxRunner(dbConn)
	configRepo := repositories.NewPostgresGroupConfigRepository(dbConn)
	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	signupRepo := repositories.NewPostgresSignupRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	submissionRepo := repositories.NewPostgresSubmissionRepository(dbConn)
	approvalRepo := repositories.NewPostgresApprovalRepository(dbConn)
	logger.Info("repositories initialized")

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	leaderboardService := services.NewLeaderboardService(eventRepo, submissionRepo, notifier, wsHub, logger)
	eventService := services.NewEventService(
		txRunner,
		configRepo,
		eventRepo,
		signupRepo,
		teamRepo,
		leaderboardService,
		notifier,
		uploader,
		logger,
		rnd,
		nil,
	)
	signupService := services.NewSignupService(eventRepo, signupRepo, nil)
	submissionService := services.NewSubmissionService(
		txRunner,
		configRepo,
		eventRepo,
		submissionRepo,
		approvalRepo,
		uploader,
		notifier,
		leaderboardService,
		logger,
		nil,
	)
	wizardService := services.NewWizardService(configRepo, eventService, uploader, logger, wizardStepTimeout, nil)
	logger.Info("services initialized")

	// Scheduler: advances event lifecycles past their due times.
	go func() {
		ticker := time.NewTicker(cfg.SchedulerInterval)
		defer ticker.Stop()
		logger.Info("event lifecycle scheduler started", slog.Duration("interval", cfg.SchedulerInterval))

		if err := eventService.AdvanceDueEvents(context.Background()); err != nil {
			logger.Error("scheduler: initial scan failed", slog.Any("error", err))
		}

		for range ticker.C {
			if err := eventService.AdvanceDueEvents(context.Background()); err != nil {
				logger.Error("scheduler: periodic scan failed", slog.Any("error", err))
			}
		}
	}()

	auth := middleware.NewAuthenticator(cfg.JWTSecretKey)
	router := api.InitRoutes(auth, api.Handlers{
		Setup:      handlers.NewSetupHandler(wizardService),
		Signup:     handlers.NewSignupHandler(signupService),
		Submission: handlers.NewSubmissionHandler(submissionService),
		Approval:   handlers.NewApprovalHandler(submissionService),
		Event:      handlers.NewEventHandler(eventService, leaderboardService),
		WebSocket:  handlers.NewWebSocketHandler(wsHub, logger),
	})
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}

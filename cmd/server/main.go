package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/examport/attempt-service/internal/auth"
	"github.com/examport/attempt-service/internal/cache"
	"github.com/examport/attempt-service/internal/catalog"
	"github.com/examport/attempt-service/internal/config"
	"github.com/examport/attempt-service/internal/handlers"
	"github.com/examport/attempt-service/internal/repositories/postgres"
	"github.com/examport/attempt-service/internal/services"
	"github.com/examport/attempt-service/internal/utils"
	"github.com/examport/attempt-service/pkg"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg),
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return err
	}
	if err := postgres.AutoMigrate(db); err != nil {
		return err
	}

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	cacheService := cache.NewRedisCache(redisClient, logger)

	publisher, err := cfg.Events.CreateEventPublisher(logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	repo := postgres.NewRepository(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := services.Bootstrap(ctx, repo, logger); err != nil {
		return err
	}

	// Exam definitions come from the relational store unless a file
	// catalog directory is configured.
	var examSource services.ExamSource = repo.Exam()
	if cfg.ExamCatalogDir != "" {
		fileCatalog, err := catalog.NewFileCatalog(cfg.ExamCatalogDir)
		if err != nil {
			return err
		}
		logger.Info("Serving exam definitions from file catalog", "dir", cfg.ExamCatalogDir)
		examSource = fileCatalog
	}

	serviceManager := services.NewServiceManager(repo, examSource, cacheService, publisher, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	handlerLogger := utils.NewSlogLogger(logger)
	router.Use(utils.LoggerMiddleware(handlerLogger))
	router.Use(utils.ContextLogger(handlerLogger))

	authenticator := auth.NewAuthenticator(cfg, handlerLogger)
	handlerManager := handlers.NewHandlerManager(serviceManager, handlerLogger)
	handlerManager.SetupRoutes(router, authenticator.Middleware())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func logLevel(cfg *config.Config) slog.Level {
	if cfg.Environment == "production" {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

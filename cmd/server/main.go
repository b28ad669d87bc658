package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"gatherhub/config"
	"gatherhub/internal/adapters/auth"
	"gatherhub/internal/adapters/cloudinary"
	delivery "gatherhub/internal/delivery/http"
	"gatherhub/internal/realtime"
	"gatherhub/internal/repository/postgres"
	"gatherhub/internal/services"
)

const (
	serviceTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("can't open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancel()
		logger.Error("can't reach database", "error", err)
		os.Exit(1)
	}
	cancel()

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		logger.Error("can't create database schema", "error", err)
		os.Exit(1)
	}

	eventRepo := postgres.NewEventRepository(db)
	attendeeRepo := postgres.NewAttendeeRepository(db)
	images := cloudinary.NewClient(
		cfg.CloudinaryCloudName,
		cfg.CloudinaryAPIKey,
		cfg.CloudinaryAPISecret,
		nil,
	)
	eventService := services.NewEventService(eventRepo, attendeeRepo, images, logger, serviceTimeout)

	tokens := auth.NewJWTManager(cfg.JWTSecret)
	hub := realtime.NewHub(logger, cfg.RateLimiterSize, cfg.MutationsPerMinute)
	coordinator := realtime.NewCoordinator(eventService, hub, db, logger)
	ws := realtime.Serve(hub, coordinator, tokens, logger, []string{cfg.ClientURL})

	eventController := delivery.NewEventController(eventService, logger)
	authController := delivery.NewAuthController(tokens, logger)
	router := delivery.NewRouter(eventController, authController, ws, tokens, db, logger, []string{cfg.ClientURL})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

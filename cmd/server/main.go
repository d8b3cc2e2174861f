package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/osaretin/rosca-server/internal/api"
	"github.com/osaretin/rosca-server/internal/config"
	"github.com/osaretin/rosca-server/internal/logging"
	"github.com/osaretin/rosca-server/internal/push"
	"github.com/osaretin/rosca-server/internal/ratelimit"
	"github.com/osaretin/rosca-server/internal/relay"
	"github.com/osaretin/rosca-server/internal/repository"
	"github.com/osaretin/rosca-server/internal/service"
)

func main() {
	logging.Setup()

	// Load configuration
	cfg := config.LoadConfig()

	// Set up database connection
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		slog.Error("failed to set up database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Create repository
	repo := repository.NewPostgresRepository(db)

	// Push hub and relay
	hub := push.NewHub()
	rel := relay.New(repo, hub)

	// Invite-code joins are rate limited per user
	joinLimiter := ratelimit.New(cfg.Limits.JoinAttempts, cfg.Limits.JoinWindow)

	// Create service
	svc := service.NewDefaultService(repo, rel, joinLimiter, cfg.Limits.ReminderWindow)

	// Scheduled jobs: overdue-cycle reminders and limiter eviction
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@hourly", func() {
		if err := svc.SendScheduledReminders(context.Background()); err != nil {
			slog.Warn("scheduled reminders failed", "error", err)
		}
	}); err != nil {
		slog.Error("failed to schedule reminders", "error", err)
		os.Exit(1)
	}
	if _, err := scheduler.AddFunc("@hourly", joinLimiter.Sweep); err != nil {
		slog.Error("failed to schedule limiter sweep", "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Create API handler
	handler := api.NewHandler(svc, hub)

	// Set up Gin router
	router := gin.Default()
	router.Use(api.MetricsMiddleware())

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("starting server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

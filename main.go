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

	"github.com/isdelr/quill-be/internal/api"
	"github.com/isdelr/quill-be/internal/auth"
	"github.com/isdelr/quill-be/internal/config"
	"github.com/isdelr/quill-be/internal/database"
	"github.com/isdelr/quill-be/internal/logger"
	"github.com/isdelr/quill-be/internal/monitoring"
	"github.com/isdelr/quill-be/internal/services"
	"github.com/isdelr/quill-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, !cfg.IsProduction())

	// Set up database
	db, err := database.Open(context.Background(), cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db, eventService)
	tokenStore := services.NewTokenStore(db)
	postService := services.NewPostService(db, eventService, hub)
	commentService := services.NewCommentService(db, eventService, hub)
	tokenService := auth.NewTokenService(auth.TokenConfig{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, tokenStore, userService, eventService).WithSessionNotifier(hub)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if _, err := userService.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatal().Err(err).Msg("Failed to bootstrap admin account")
		}
	}

	// Set up and run the background scheduler
	scheduler, err := monitoring.NewScheduler(cfg.TokenPurgeSchedule, tokenStore, eventService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure scheduler")
	}
	scheduler.Run()

	// Set up router
	router := api.NewRouter(api.Dependencies{
		Users:          userService,
		Tokens:         tokenService,
		Posts:          postService,
		Comments:       commentService,
		Events:         eventService,
		Hub:            hub,
		Stats:          monitoring.NewSystemMonitor(hub),
		DB:             db,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		AccessTokenTTL: cfg.AccessTokenTTL,
		SecureCookies:  cfg.IsProduction(),
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
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

	scheduler.Stop()
	hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/marketplace-be/internal/api"
	"github.com/isdelr/marketplace-be/internal/auth"
	"github.com/isdelr/marketplace-be/internal/config"
	"github.com/isdelr/marketplace-be/internal/database"
	"github.com/isdelr/marketplace-be/internal/logger"
	"github.com/isdelr/marketplace-be/internal/maintenance"
	"github.com/isdelr/marketplace-be/internal/services"
	"github.com/isdelr/marketplace-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.LogLevel, cfg.LogPretty)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token issuer")
	}
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db, hasher, tokens, eventService)
	categoryService := services.NewCategoryService(db, eventService, hub)
	productService := services.NewProductService(db, categoryService, eventService, hub)

	// Set up the event retention job
	scheduler := maintenance.NewScheduler(eventService, cfg.EventRetention)
	if err := scheduler.Start(cfg.EventPruneSchedule); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.EventPruneSchedule).Msg("Failed to start maintenance scheduler")
	}

	router := api.NewRouter(api.Deps{
		Users:          userService,
		Categories:     categoryService,
		Products:       productService,
		Events:         eventService,
		Tokens:         tokens,
		Hub:            hub,
		DB:             db,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}

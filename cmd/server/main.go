package main

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/snapgram/backend/internal/router"
	"github.com/snapgram/backend/pkg/config"
	"github.com/snapgram/backend/validators"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := config.NewLogger(cfg)

	// Initialize database connection
	db, err := config.InitDB(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.CloseDB(log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("failed to create indexes")
	}
	cancel()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()

	// Setup global middleware
	router.SetupMiddleware(e, cfg, log)

	// Setup routes and dependencies
	router.SetupRoutes(e, db, cfg, log)

	// Start server
	log.Info().Str("port", cfg.Port).Msg("starting server")
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

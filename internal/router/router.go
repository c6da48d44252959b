package router

import (
	"strings"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/snapgram/backend/internal/events"
	"github.com/snapgram/backend/internal/handlers"
	"github.com/snapgram/backend/internal/middleware"
	"github.com/snapgram/backend/internal/realtime"
	"github.com/snapgram/backend/internal/repositories"
	"github.com/snapgram/backend/internal/services"
	"github.com/snapgram/backend/pkg/config"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo, cfg *config.Config, log zerolog.Logger) {
	e.Use(eMiddleware.Recover())

	corsConfig := eMiddleware.DefaultCORSConfig
	if cfg.AllowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
	}
	e.Use(eMiddleware.CORSWithConfig(corsConfig))

	log.Info().Msg("global middleware configured")
}

// SetupRoutes wires repositories, services and handlers together and
// registers every route
func SetupRoutes(e *echo.Echo, db *config.DB, cfg *config.Config, log zerolog.Logger) {
	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Repositories ---
	userRepo := repositories.NewMongoUserRepository(db.Database)
	notificationRepo := repositories.NewMongoNotificationRepository(db.Database)
	storyRepo := repositories.NewMongoStoryRepository(db.Database)
	interactionRepo := repositories.NewMongoInteractionRepository(db.Database)
	messageRepo := repositories.NewMongoMessageRepository(db.Database)

	// --- Event bus and websocket hub ---
	bus := events.NewBus(log)
	hub := realtime.NewHub(log)
	hub.BindBus(bus)

	// --- Services ---
	notificationService := services.NewNotificationService(notificationRepo, bus, log)
	followService := services.NewFollowService(userRepo, notificationService, log)
	storyService := services.NewStoryService(storyRepo, interactionRepo, userRepo, cfg.StoryTTL, log)
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, log)
	userService := services.NewUserService(userRepo, notificationRepo, storyRepo, interactionRepo, log)
	messageService := services.NewMessageService(messageRepo, userRepo, notificationService, bus, log)

	// --- Unprotected routes for authentication ---
	authHandler := handlers.NewAuthHandler(authService)
	authHandler.RegisterAuthRoutes(e.Group("/api/v1/auth"))

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))

	authHandler.RegisterLogoutRoute(api)

	userHandler := handlers.NewUserHandler(userService)
	userHandler.RegisterProfileRoutes(api)

	followHandler := handlers.NewFollowHandler(followService)
	followHandler.RegisterFollowRoutes(api)

	notificationHandler := handlers.NewNotificationHandler(notificationService)
	notificationHandler.RegisterNotificationRoutes(api)

	storyHandler := handlers.NewStoryHandler(storyService)
	storyHandler.RegisterStoryRoutes(api)

	messageHandler := handlers.NewMessageHandler(messageService)
	messageHandler.RegisterMessageRoutes(api)

	// Websocket endpoint; the JWT middleware reads the token from the
	// query string for these connections
	api.GET("/ws", hub.ServeWS)

	log.Info().Msg("all routes configured")
}

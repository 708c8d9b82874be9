package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mealcraft/discovery-api/internal/ai"
	"github.com/mealcraft/discovery-api/internal/config"
	"github.com/mealcraft/discovery-api/internal/handlers"
	"github.com/mealcraft/discovery-api/internal/logger"
	"github.com/mealcraft/discovery-api/internal/middleware"
	"github.com/mealcraft/discovery-api/internal/pipeline"
	"github.com/mealcraft/discovery-api/internal/repository"
	"github.com/mealcraft/discovery-api/internal/scrape"
	"github.com/mealcraft/discovery-api/internal/service"
	"github.com/mealcraft/discovery-api/internal/ws"
)

// SetupRouter sets up the Gin router.
func SetupRouter(cfg *config.Config, database *gorm.DB) *gin.Engine {
	// Create default Gin router
	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowCredentials = true
	corsConfig.AllowOrigins = []string{
		"https://api.mealcraft.io",
		"https://www.api.mealcraft.io",
		"https://mealcraft.io",
		"https://www.mealcraft.io",
	}
	r.Use(cors.New(corsConfig))

	// Add request ID middleware for request correlation
	r.Use(logger.RequestIDMiddleware())

	// Ping route for testing
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Progress hub setup
	hub := ws.NewHub()
	go hub.Run()

	// Collaborator setup
	openaiProvider := ai.NewOpenAIProvider(cfg.EnvVars.OpenAIAPIKey, cfg.Prompts)
	searchProvider := ai.NewWebSearchProvider(cfg.EnvVars.BraveSearchKey, cfg.EnvVars.GoogleSearchKey, cfg.EnvVars.GoogleSearchCX)
	fetcher := scrape.NewFetcher()
	parser := scrape.NewRecipeParser(fetcher)
	expander := scrape.NewListExpander(openaiProvider)

	var verifier pipeline.Verifier = openaiProvider
	if cfg.EnvVars.Verifier == "anthropic" && cfg.EnvVars.AnthropicAPIKey != "" {
		verifier = ai.NewAnthropicVerifier(cfg.EnvVars.AnthropicAPIKey, cfg.Prompts)
	}

	// Pipeline setup
	discoveryPipeline := pipeline.New(
		searchProvider,
		openaiProvider,
		parser,
		fetcher,
		expander,
		verifier,
		openaiProvider,
		ws.NewProgressPublisher(hub),
		pipeline.Config{
			BatchSize:        cfg.EnvVars.Pipeline.BatchSize,
			ParseTimeout:     cfg.EnvVars.Pipeline.ParseTimeout,
			SearchCount:      cfg.EnvVars.Pipeline.SearchCount,
			ListExpansionCap: cfg.EnvVars.Pipeline.ListExpansionCap,
			MaxPerDomain:     cfg.EnvVars.Pipeline.MaxPerDomain,
			DomainFloor:      cfg.EnvVars.Pipeline.DomainFloor,
		},
	)

	// Discovery and session routes setup
	sessionRepo := repository.NewGormSessionRepo(database)
	discoveryService := service.NewDiscoveryService(cfg, sessionRepo, discoveryPipeline)
	discoveryHandler := handlers.NewDiscoveryHandler(discoveryService)
	sessionService := service.NewSessionService(cfg, sessionRepo)
	sessionHandler := handlers.NewSessionHandler(sessionService)

	// Group for API routes that require token verification
	apiProtected := r.Group("/v1")
	{
		apiProtected.Use(middleware.VerifyTokenMiddleware(cfg))

		// Run a discovery query
		apiProtected.POST("/discover", middleware.RateLimitByIP(5, 10*time.Minute, 1*time.Hour), discoveryHandler.Discover)

		// Session bookkeeping
		apiProtected.GET("/session", sessionHandler.GetSession)
		apiProtected.DELETE("/session/shown-urls", sessionHandler.ClearShownURLs)
		apiProtected.POST("/session/meals", sessionHandler.SaveMeal)
	}

	// Internal ops routes, reachable only with the infra identifier header
	if cfg.EnvVars.InternalAPIID != "" {
		internal := r.Group("/internal", middleware.CheckIDHeader(cfg.EnvVars.InternalAPIID))
		internal.GET("/status", func(c *gin.Context) {
			sqlDB, err := database.DB()
			if err != nil || sqlDB.Ping() != nil {
				c.JSON(503, gin.H{"status": "degraded"})
				return
			}
			c.JSON(200, gin.H{"status": "ok"})
		})
	}

	// WebSocket routes (authenticated via query param token)
	watchHandler := ws.NewWatchHandler(hub, cfg.EnvVars.JwtSecretKey)
	r.GET("/v1/ws/discover/:discovery_id", watchHandler.HandleDiscoveryWatch)

	return r
}

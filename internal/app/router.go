package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"freight/internal/handler"
	"freight/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	LoadHandler       *handler.LoadHandler
	SettlementHandler *handler.SettlementHandler
	RedisClient       *redis.Client
	NewRelicApp       *newrelic.Application
	AllowedOrigins    []string
}

// NewRouter creates the Gin engine with all routes registered and wraps it
// with CORS handling.
func NewRouter(deps RouterDeps) http.Handler {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.ActorMiddleware())
	router.Use(middleware.NewRelicActorMiddleware())
	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Load routes.
		loads := v1.Group("/loads")
		{
			loads.GET("/:id", deps.LoadHandler.GetLoad)
			loads.PATCH("/:id", deps.LoadHandler.UpdateLoad)
			loads.DELETE("/:id", deps.LoadHandler.DeleteLoad)
			loads.GET("/:id/history", deps.LoadHandler.ListHistory)
		}

		// Settlement routes.
		settlements := v1.Group("/settlements")
		{
			settlements.GET("/:id", deps.SettlementHandler.GetSettlement)
			settlements.POST("/:id/recalculate", deps.SettlementHandler.Recalculate)
			settlements.GET("/:id/statement.xlsx", deps.SettlementHandler.ExportStatement)

			settlements.GET("/:id/deductions", deps.SettlementHandler.ListDeductions)
			settlements.POST("/:id/deductions", deps.SettlementHandler.CreateEntry)
			settlements.PATCH("/:id/deductions/:entryId", deps.SettlementHandler.UpdateEntry)
			settlements.DELETE("/:id/deductions/:entryId", deps.SettlementHandler.DeleteEntry)

			settlements.GET("/:id/advances", deps.SettlementHandler.ListAdvances)
			settlements.POST("/:id/advances", deps.SettlementHandler.CreateAdvance)
			settlements.DELETE("/:id/advances/:advanceId", deps.SettlementHandler.DeleteAdvance)
		}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: deps.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept", "Content-Type", "Idempotency-Key",
			middleware.HeaderOrganizationID, middleware.HeaderUserID, middleware.HeaderUserRole,
		},
		ExposedHeaders: []string{"Content-Disposition", "Idempotent-Replayed"},
		MaxAge:         300,
	})(router)
}

package http

import (
	"github.com/gin-gonic/gin"
	"github.com/scentmatch/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		analysis := v1.Group("/analysis")
		{
			analysis.POST("", handler.StartAnalysis)
			analysis.GET("/:id", handler.GetRunStatus)
			analysis.GET("/:id/results", handler.GetRunResults)
			analysis.GET("/:id/missing", handler.GetRunMissing)
			analysis.POST("/:id/notify", handler.NotifyRun)
		}

		history := v1.Group("/history")
		{
			history.GET("/runs", handler.ListRuns)
			history.GET("/decisions", handler.ListDecisions)
			history.POST("/decisions", handler.LogDecision)
			history.GET("/events", handler.ListEvents)
		}
	}

	return router
}

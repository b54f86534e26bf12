package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/crypt0inf0/openalgo-chart/internal/handlers"
	"github.com/crypt0inf0/openalgo-chart/internal/metrics"
	"github.com/crypt0inf0/openalgo-chart/internal/server"
)

// SetupRoutes configures all the routes for the application
func SetupRoutes(r *gin.Engine, alertHandler *handlers.AlertHandler, hub *server.Hub) {
	// API routes
	api := r.Group("/api/v1")
	{
		// Market data ticks drive the evaluator
		api.POST("/ticks", alertHandler.HandleTick)

		// Alert management endpoints
		alertGroup := api.Group("/alerts")
		{
			alertGroup.GET("", alertHandler.ListAlerts)
			alertGroup.POST("", alertHandler.CreateAlert)
			alertGroup.GET("/export", alertHandler.ExportAlerts)
			alertGroup.POST("/import", alertHandler.ImportAlerts)
			alertGroup.POST("/save", alertHandler.SaveAlerts)
			alertGroup.POST("/load", alertHandler.LoadAlerts)
			alertGroup.DELETE("", alertHandler.ClearAlerts)
			alertGroup.GET("/:id", alertHandler.GetAlert)
			alertGroup.PUT("/:id", alertHandler.UpdateAlert)
			alertGroup.DELETE("/:id", alertHandler.DeleteAlert)
			alertGroup.GET("/:id/conditions", alertHandler.GetConditionOptions)
			alertGroup.GET("/:id/edit", alertHandler.GetEditData)
		}
	}

	// Notification push to the chart UI
	r.GET("/ws", func(c *gin.Context) {
		hub.ServeWS(c.Writer, c.Request)
	})

	// Synthesized alarm tone
	r.GET("/sounds/alert.wav", alertHandler.ServeSound)

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "openalgo-chart",
		})
	})

	// Root endpoint
	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "OpenAlgo Chart Alert Engine",
			"version": "1.0.0",
			"endpoints": gin.H{
				"ticks":   "/api/v1/ticks",
				"alerts":  "/api/v1/alerts",
				"ws":      "/ws",
				"metrics": "/metrics",
				"health":  "/health",
			},
		})
	})
}

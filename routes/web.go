package routes

import (
	"time"

	"github.com/gin-gonic/gin"
)

var startedAt = time.Now()

// SetupWebRoutes thiết lập web routes
func SetupWebRoutes(router *gin.Engine) {
	web := router.Group("/")
	{
		// Home page
		web.GET("/", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"message": "Location Resolver Service",
				"version": "1.0.0",
				"docs":    "/docs",
			})
		})

		// API documentation
		web.GET("/docs", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"api": "Location Resolver API v1",
				"endpoints": map[string]string{
					"create_session": "POST /v1/sessions",
					"options":        "GET /v1/sessions/:id/options/:level?wait=1",
					"select":         "POST /v1/sessions/:id/select",
					"search":         "POST /v1/sessions/:id/search",
					"suggest":        "GET /v1/sessions/:id/suggest/:level?text=",
					"delete_session": "DELETE /v1/sessions/:id",
					"flush_cache":    "POST /v1/admin/cache/flush",
					"stats":          "GET /v1/admin/stats",
					"health":         "GET /health",
					"metrics":        "GET /metrics",
				},
			})
		})

		// Status page
		web.GET("/status", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "running",
				"service": "Location Resolver",
				"uptime":  time.Since(startedAt).Round(time.Second).String(),
			})
		})
	}
}

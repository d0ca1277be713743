package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/location-resolver/app/controllers"
	"github.com/location-resolver/internal/metrics"
)

// SetupAPIRoutes thiết lập tất cả API routes
func SetupAPIRoutes(router *gin.Engine, locationController *controllers.LocationController, adminController *controllers.AdminController) {
	// API v1 group
	v1 := router.Group("/v1")
	{
		// Session chọn địa điểm
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", locationController.CreateSession)
			sessions.DELETE("/:id", locationController.DeleteSession)
			sessions.GET("/:id/options/:level", locationController.GetOptions)
			sessions.POST("/:id/select", locationController.Select)
			sessions.POST("/:id/search", locationController.Search)
			sessions.GET("/:id/suggest/:level", locationController.Suggest)
		}

		// Admin routes
		admin := v1.Group("/admin")
		{
			admin.POST("/cache/flush", adminController.FlushCache)
			admin.GET("/stats", adminController.GetStats)
		}

		// Health check route
		v1.GET("/health", locationController.HealthCheck)
	}
}

// SetupHealthRoutes thiết lập health check routes
func SetupHealthRoutes(router *gin.Engine, locationController *controllers.LocationController) {
	// Root health check
	router.GET("/health", locationController.HealthCheck)

	// Readiness check
	router.GET("/ready", locationController.HealthCheck)

	// Liveness check
	router.GET("/live", locationController.HealthCheck)
}

// SetupMetricsRoutes thiết lập metrics routes (cho Prometheus)
func SetupMetricsRoutes(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
}

// SetupAllRoutes thiết lập tất cả routes
func SetupAllRoutes(router *gin.Engine, locationController *controllers.LocationController, adminController *controllers.AdminController) {
	// Thiết lập middleware
	setupMiddleware(router)

	// Thiết lập các loại routes
	SetupWebRoutes(router)
	SetupHealthRoutes(router, locationController)
	SetupAPIRoutes(router, locationController, adminController)
	SetupMetricsRoutes(router)

	// 404 handler
	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"error":  "Route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})
}

// setupMiddleware thiết lập middleware cho router
func setupMiddleware(router *gin.Engine) {
	// Recovery middleware
	router.Use(gin.Recovery())

	// Logger middleware
	if gin.Mode() != gin.TestMode {
		router.Use(gin.Logger())
	}
}

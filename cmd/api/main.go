package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/location-resolver/app/config"
	"github.com/location-resolver/app/controllers"
	"github.com/location-resolver/app/services"
	"github.com/location-resolver/internal/bootstrap"
	"github.com/location-resolver/internal/fallback"
	"github.com/location-resolver/routes"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	if err := bootstrap.LoadConfig("config/resolver.yaml"); err != nil {
		panic(err)
	}

	// 2. Initialize logger
	logger := bootstrap.InitLogger()
	defer logger.Sync()

	logger.Info("Starting Location Resolver Service...")

	ctx := context.Background()

	// 3. Persisted tier (Redis / MongoDB / memory)
	persisted, cleanup, err := bootstrap.PersistedStore(ctx, logger)
	if err != nil {
		logger.Fatal("Failed to initialize persisted cache", zap.Error(err))
	}
	defer cleanup()

	// 4. Remote source + fallback dataset
	source, err := bootstrap.Source(logger)
	if err != nil {
		logger.Fatal("Failed to initialize remote source", zap.Error(err))
	}
	dataset, err := fallback.Load()
	if err != nil {
		logger.Fatal("Failed to load fallback dataset", zap.Error(err))
	}

	// 5. Initialize services
	selections := services.NewSelectionStore(persisted, config.C.Selection.Key, config.C.Selection.TTL, logger)
	sessions, err := services.NewSessionManager(persisted, selections, source, dataset, bootstrap.SessionConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to create session manager", zap.Error(err))
	}
	defer sessions.Close()

	adminService := services.NewAdminService(sessions, config.C.Cache.KeyPrefix, logger)

	// 6. Initialize controllers
	locationController := controllers.NewLocationController(sessions, config.RequestTimeout(), logger)
	adminController := controllers.NewAdminController(adminService, logger)

	// 7. Setup Gin router
	if viper.GetString("app.env") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	routes.SetupAllRoutes(router, locationController, adminController)

	// 8. Start server
	port := viper.GetString("app.port")
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}
	go func() {
		logger.Info("Starting HTTP server", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

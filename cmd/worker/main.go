package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/location-resolver/app/config"
	"github.com/location-resolver/app/services"
	"github.com/location-resolver/internal/bootstrap"
	"github.com/location-resolver/internal/fallback"
	"github.com/location-resolver/internal/warmer"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	if err := bootstrap.LoadConfig("config/resolver.yaml"); err != nil {
		panic(err)
	}

	logger := bootstrap.InitLogger()
	defer logger.Sync()

	logger.Info("Starting Location Cache Warmer...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	persisted, cleanup, err := bootstrap.PersistedStore(ctx, logger)
	if err != nil {
		logger.Fatal("Failed to initialize persisted cache", zap.Error(err))
	}
	defer cleanup()

	source, err := bootstrap.Source(logger)
	if err != nil {
		logger.Fatal("Failed to initialize remote source", zap.Error(err))
	}

	// session tier của worker chỉ sống trong process
	scratch, err := services.NewCacheService(config.C.Cache.SessionSize)
	if err != nil {
		logger.Fatal("Failed to create scratch cache", zap.Error(err))
	}
	layer := services.NewCacheLayer(scratch, persisted, services.CacheLayerConfig{
		PersistedTTL: config.C.Cache.PersistedTTL,
	}, logger)

	w := warmer.New(layer, source, fallback.MustLoad(), warmer.Config{
		Interval:  config.C.Warmer.Interval,
		Countries: config.C.Warmer.Countries,
		Resolver:  bootstrap.ResolverConfig(),
	}, logger)

	logger.Info("Warmer running",
		zap.Duration("interval", config.C.Warmer.Interval),
		zap.Strings("countries", config.C.Warmer.Countries))
	w.Run(ctx)

	logger.Info("Worker exited")
}

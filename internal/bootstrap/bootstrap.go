// Package bootstrap khởi tạo các thành phần dùng chung cho cmd/api và cmd/worker:
// cấu hình, logger, persisted tier và nguồn dữ liệu remote.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/location-resolver/app/config"
	"github.com/location-resolver/app/services"
	"github.com/location-resolver/internal/remote"
	"github.com/location-resolver/internal/resolver"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// LoadConfig load .env, config/app.yaml (viper) và file cấu hình resolver
func LoadConfig(resolverPath string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Cannot read .env: %v", err)
	}

	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	// Set defaults
	viper.SetDefault("app.port", "8080")
	viper.SetDefault("app.env", "development")
	viper.SetDefault("source.kind", "http")
	viper.SetDefault("meilisearch.url", "http://localhost:7700")
	viper.SetDefault("meilisearch.index", "locations")
	viper.SetDefault("mongo.database", "location_resolver")
	viper.SetDefault("sessions.max", 10000)
	viper.SetDefault("cache.l1_size", 10000)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Cannot read config file: %v", err)
	}

	return config.Load(resolverPath)
}

// InitLogger khởi tạo structured logger
func InitLogger() *zap.Logger {
	env := getEnv("APP_ENV", viper.GetString("app.env"))

	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		log.Fatal("Cannot initialize logger:", err)
	}
	return logger
}

// InitMongoDB khởi tạo kết nối MongoDB
func InitMongoDB(ctx context.Context, mongoURL string, logger *zap.Logger) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return nil, fmt.Errorf("không thể kết nối MongoDB: %w", err)
	}

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("không thể ping MongoDB: %w", err)
	}

	dbName := viper.GetString("mongo.database")
	logger.Info("Connected to MongoDB", zap.String("database", dbName))
	return client.Database(dbName), nil
}

// PersistedStore chọn persisted tier theo cấu hình:
// Redis + MongoDB -> hybrid, chỉ một trong hai -> dùng nó, không có -> bộ nhớ.
// Hàm cleanup trả về đóng mọi kết nối đã mở.
func PersistedStore(ctx context.Context, logger *zap.Logger) (services.ICacheService, func(), error) {
	redisURL := viper.GetString("redis.url")
	mongoURL := viper.GetString("mongo.url")
	l1Size := getEnvInt("L1_CACHE_SIZE", viper.GetInt("cache.l1_size"))

	var (
		redisCache *services.RedisCacheService
		mongoCache *services.MongoCacheService
		mongoDB    *mongo.Database
		err        error
	)

	if redisURL != "" {
		redisCache, err = services.NewRedisCacheService(redisURL, logger)
		if err != nil {
			return nil, nil, err
		}
	}
	if mongoURL != "" {
		mongoDB, err = InitMongoDB(ctx, mongoURL, logger)
		if err == nil {
			mongoCache, err = services.NewMongoCacheService(mongoDB, l1Size, logger)
		}
		if err != nil {
			if redisCache != nil {
				_ = redisCache.Close()
			}
			return nil, nil, err
		}
	}

	cleanup := func() {
		if redisCache != nil {
			if err := redisCache.Close(); err != nil {
				logger.Error("Error closing Redis", zap.Error(err))
			}
		}
		if mongoDB != nil {
			if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
				logger.Error("Error disconnecting MongoDB", zap.Error(err))
			}
		}
	}

	switch {
	case redisCache != nil && mongoCache != nil:
		if err := mongoCache.WarmUp(ctx, l1Size/2); err != nil {
			logger.Warn("Failed to warm up cache", zap.Error(err))
		}
		logger.Info("Persisted tier: Redis L1 + MongoDB L2")
		return services.NewHybridCacheService(redisCache, mongoCache, logger), cleanup, nil
	case redisCache != nil:
		logger.Info("Persisted tier: Redis")
		return redisCache, cleanup, nil
	case mongoCache != nil:
		logger.Info("Persisted tier: MongoDB")
		return mongoCache, cleanup, nil
	}

	logger.Warn("Không cấu hình Redis/MongoDB, persisted tier chỉ nằm trong bộ nhớ")
	mem, err := services.NewCacheService(l1Size)
	if err != nil {
		return nil, nil, err
	}
	return mem, func() {}, nil
}

// Source chọn nguồn option remote: "meili" hoặc "http"
func Source(logger *zap.Logger) (remote.Source, error) {
	switch kind := strings.ToLower(viper.GetString("source.kind")); kind {
	case "meili", "meilisearch":
		logger.Info("Remote source: Meilisearch", zap.String("host", viper.GetString("meilisearch.url")))
		return remote.NewMeiliSource(remote.MeiliConfig{
			Host:      viper.GetString("meilisearch.url"),
			APIKey:    viper.GetString("meilisearch.master_key"),
			IndexName: viper.GetString("meilisearch.index"),
		}, logger)
	case "", "http":
		logger.Info("Remote source: HTTP", zap.String("base_url", config.C.API.BaseURL))
		return remote.NewHTTPSource(remote.HTTPConfig{
			BaseURL:          config.C.API.BaseURL,
			Timeout:          config.RequestTimeout(),
			CountryEndpoints: config.C.API.CountryEndpoints,
			VillageLimit:     config.C.API.VillageLimit,
		}, logger), nil
	default:
		return nil, fmt.Errorf("source.kind không hỗ trợ: %q", kind)
	}
}

// ResolverConfig cấu hình Resolver lấy từ config.C
func ResolverConfig() resolver.Config {
	return resolver.Config{
		SearchDelay:   config.C.Debounce.SearchDelay,
		FetchTimeout:  config.RequestTimeout(),
		PersistLevels: config.PersistLevels(),
		KeyPrefix:     config.C.Cache.KeyPrefix,
		Language:      config.C.Collation.Language,
	}
}

// SessionConfig cấu hình SessionManager lấy từ config.C và viper
func SessionConfig() services.SessionConfig {
	return services.SessionConfig{
		MaxSessions:  viper.GetInt("sessions.max"),
		SessionSize:  config.C.Cache.SessionSize,
		SessionTTL:   config.C.Cache.SessionTTL,
		PersistedTTL: config.C.Cache.PersistedTTL,
		Resolver:     ResolverConfig(),
	}
}

// getEnv lấy environment variable với default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt lấy environment variable as int với default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

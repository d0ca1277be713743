package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCacheService persisted tier sử dụng Redis
type RedisCacheService struct {
	client redis.UniversalClient
	logger *zap.Logger
	prefix string

	// Stats
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisCacheService tạo mới Redis cache service từ URL
func NewRedisCacheService(redisURL string, logger *zap.Logger) (*RedisCacheService, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("lỗi parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("không thể kết nối Redis: %w", err)
	}

	return NewRedisCacheServiceWithClient(client, logger), nil
}

// NewRedisCacheServiceWithClient dùng client có sẵn
func NewRedisCacheServiceWithClient(client redis.UniversalClient, logger *zap.Logger) *RedisCacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCacheService{
		client: client,
		logger: logger,
		prefix: "locres:",
	}
}

// Get lấy payload từ Redis
func (rcs *RedisCacheService) Get(ctx context.Context, key string) ([]byte, bool, error) {
	cacheKey := rcs.prefix + key

	val, err := rcs.client.Get(ctx, cacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		rcs.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		rcs.logger.Error("Lỗi get từ Redis", zap.Error(err), zap.String("key", cacheKey))
		return nil, false, err
	}

	rcs.hits.Add(1)
	rcs.logger.Debug("Redis cache hit", zap.String("key", key))
	return val, true, nil
}

// Set lưu payload vào Redis, ttl <= 0 lưu không hết hạn
func (rcs *RedisCacheService) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	cacheKey := rcs.prefix + key
	if ttl < 0 {
		ttl = 0
	}

	if err := rcs.client.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
		rcs.logger.Error("Lỗi set vào Redis", zap.Error(err), zap.String("key", cacheKey))
		return err
	}

	rcs.logger.Debug("Đã lưu vào Redis cache", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

// Delete xóa key khỏi Redis
func (rcs *RedisCacheService) Delete(ctx context.Context, key string) error {
	cacheKey := rcs.prefix + key

	if err := rcs.client.Del(ctx, cacheKey).Err(); err != nil {
		rcs.logger.Error("Lỗi delete từ Redis", zap.Error(err), zap.String("key", cacheKey))
		return err
	}
	return nil
}

// DeletePrefix xóa các key theo prefix bằng SCAN (không chặn server như KEYS)
func (rcs *RedisCacheService) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	pattern := rcs.prefix + escapeGlob(prefix) + "*"
	deleted := 0

	iter := rcs.client.Scan(ctx, 0, pattern, 200).Iterator()
	batch := make([]string, 0, 200)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := rcs.client.Del(ctx, batch...).Result()
		if err != nil {
			return err
		}
		deleted += int(n)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return deleted, fmt.Errorf("lỗi xóa keys: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("lỗi scan keys: %w", err)
	}
	if err := flush(); err != nil {
		return deleted, fmt.Errorf("lỗi xóa keys: %w", err)
	}

	rcs.logger.Info("Đã xóa Redis cache theo prefix", zap.String("prefix", prefix), zap.Int("keys_deleted", deleted))
	return deleted, nil
}

// Clear xóa toàn bộ cache của service
func (rcs *RedisCacheService) Clear(ctx context.Context) error {
	_, err := rcs.DeletePrefix(ctx, "")
	return err
}

// GetStats lấy thống kê cache
func (rcs *RedisCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	hits, misses := rcs.hits.Load(), rcs.misses.Load()

	totalItems := int64(0)
	iter := rcs.client.Scan(ctx, 0, rcs.prefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		totalItems++
	}
	if err := iter.Err(); err != nil {
		rcs.logger.Warn("Không thể đếm keys Redis", zap.Error(err))
	}

	return &CacheStats{
		HitRate:    hitRate(hits, misses),
		TotalHits:  hits,
		TotalMiss:  misses,
		TotalItems: totalItems,
	}, nil
}

// Exists kiểm tra key có tồn tại không
func (rcs *RedisCacheService) Exists(ctx context.Context, key string) (bool, error) {
	n, err := rcs.client.Exists(ctx, rcs.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetTTL lấy TTL của key
func (rcs *RedisCacheService) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := rcs.client.TTL(ctx, rcs.prefix+key).Result()
	if err != nil {
		return 0, err
	}
	// -1: không hết hạn, -2: không tồn tại
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Close đóng kết nối Redis
func (rcs *RedisCacheService) Close() error {
	return rcs.client.Close()
}

// SetPrefix đổi namespace key
func (rcs *RedisCacheService) SetPrefix(prefix string) {
	rcs.prefix = prefix
}

func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}

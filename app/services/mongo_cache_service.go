package services

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/location-resolver/app/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoCacheService persisted tier sử dụng MongoDB + LRU in-memory
type MongoCacheService struct {
	collection *mongo.Collection
	l1Cache    *lru.Cache[string, memItem] // LRU in-memory cache
	logger     *zap.Logger

	// Metrics
	l1Hits    atomic.Int64
	l1Miss    atomic.Int64
	mongoHits atomic.Int64
	mongoMiss atomic.Int64
}

// NewMongoCacheService tạo mới MongoCacheService
func NewMongoCacheService(db *mongo.Database, l1Size int, logger *zap.Logger) (*MongoCacheService, error) {
	if l1Size <= 0 {
		l1Size = 1024
	}
	l1Cache, err := lru.New[string, memItem](l1Size)
	if err != nil {
		return nil, fmt.Errorf("không thể tạo LRU cache: %w", err)
	}

	collection := db.Collection("location_cache")

	// expires_at là TTL index: Mongo tự dọn các document hết hạn
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "fingerprint", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{bson.E{Key: "key", Value: 1}},
		},
		{
			Keys:    bson.D{bson.E{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		logger.Warn("Không thể tạo indexes cho location_cache", zap.Error(err))
	}

	return &MongoCacheService{
		collection: collection,
		l1Cache:    l1Cache,
		logger:     logger,
	}, nil
}

// Get lấy payload (L1 → MongoDB)
func (mcs *MongoCacheService) Get(ctx context.Context, key string) ([]byte, bool, error) {
	now := time.Now()

	// 1. Thử L1 cache trước (in-memory LRU)
	if item, found := mcs.l1Cache.Get(key); found {
		if !item.expired(now) {
			mcs.l1Hits.Add(1)
			return item.data, true, nil
		}
		mcs.l1Cache.Remove(key)
	}
	mcs.l1Miss.Add(1)

	// 2. Thử MongoDB persistent cache
	var doc models.LocationCacheDocument
	err := mcs.collection.FindOne(ctx, bson.M{"fingerprint": fingerprint(key)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			mcs.mongoMiss.Add(1)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("lỗi query MongoDB cache: %w", err)
	}

	// TTL index của Mongo dọn theo chu kỳ, document có thể còn sau khi hết hạn
	if doc.IsExpired(now) {
		mcs.mongoMiss.Add(1)
		if _, err := mcs.collection.DeleteOne(ctx, bson.M{"_id": doc.ID}); err != nil {
			mcs.logger.Warn("Lỗi xóa document hết hạn", zap.Error(err))
		}
		return nil, false, nil
	}

	mcs.mongoHits.Add(1)
	go mcs.updateAccessStats(doc.ID)

	item := memItem{data: doc.Data}
	if doc.ExpiresAt != nil {
		item.expiresAt = *doc.ExpiresAt
	}
	mcs.l1Cache.Add(key, item)

	mcs.logger.Debug("MongoDB cache hit", zap.String("key", key))
	return doc.Data, true, nil
}

// Set lưu payload (L1 + MongoDB)
func (mcs *MongoCacheService) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	doc := models.NewLocationCacheDocument(key, fingerprint(key), data, ttl)

	item := memItem{data: data}
	if doc.ExpiresAt != nil {
		item.expiresAt = *doc.ExpiresAt
	}
	mcs.l1Cache.Add(key, item)

	opts := options.Replace().SetUpsert(true)
	if _, err := mcs.collection.ReplaceOne(ctx, bson.M{"fingerprint": doc.Fingerprint}, doc, opts); err != nil {
		mcs.logger.Error("Lỗi lưu vào MongoDB cache", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("lỗi lưu vào MongoDB cache: %w", err)
	}
	return nil
}

// Delete xóa key khỏi cache
func (mcs *MongoCacheService) Delete(ctx context.Context, key string) error {
	mcs.l1Cache.Remove(key)

	if _, err := mcs.collection.DeleteOne(ctx, bson.M{"fingerprint": fingerprint(key)}); err != nil {
		return fmt.Errorf("lỗi xóa khỏi MongoDB cache: %w", err)
	}
	return nil
}

// DeletePrefix xóa các key theo prefix
func (mcs *MongoCacheService) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	for _, key := range mcs.l1Cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			mcs.l1Cache.Remove(key)
		}
	}

	filter := bson.M{"key": bson.M{"$regex": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix)}}}
	result, err := mcs.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("lỗi xóa MongoDB cache theo prefix: %w", err)
	}

	mcs.logger.Info("Đã xóa MongoDB cache theo prefix",
		zap.String("prefix", prefix),
		zap.Int64("deleted_count", result.DeletedCount))
	return int(result.DeletedCount), nil
}

// Clear xóa tất cả cache
func (mcs *MongoCacheService) Clear(ctx context.Context) error {
	mcs.l1Cache.Purge()

	if _, err := mcs.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("lỗi clear MongoDB cache: %w", err)
	}
	return nil
}

// GetStats lấy thống kê cache
func (mcs *MongoCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	mongoCount, err := mcs.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("lỗi đếm documents trong MongoDB cache: %w", err)
	}

	hits := mcs.l1Hits.Load() + mcs.mongoHits.Load()
	misses := mcs.mongoMiss.Load()

	mcs.logger.Debug("Cache stats",
		zap.Int64("l1_hits", mcs.l1Hits.Load()),
		zap.Int64("mongo_hits", mcs.mongoHits.Load()),
		zap.Int("l1_size", mcs.l1Cache.Len()),
		zap.Int64("mongo_count", mongoCount))

	return &CacheStats{
		HitRate:    hitRate(hits, misses),
		TotalHits:  hits,
		TotalMiss:  misses,
		TotalItems: mongoCount,
	}, nil
}

// Exists kiểm tra key có tồn tại không
func (mcs *MongoCacheService) Exists(ctx context.Context, key string) (bool, error) {
	if mcs.l1Cache.Contains(key) {
		return true, nil
	}

	count, err := mcs.collection.CountDocuments(ctx, bson.M{"fingerprint": fingerprint(key)})
	if err != nil {
		return false, fmt.Errorf("lỗi check exists trong MongoDB: %w", err)
	}
	return count > 0, nil
}

// GetTTL lấy TTL còn lại của key theo expires_at
func (mcs *MongoCacheService) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	var doc models.LocationCacheDocument
	opts := options.FindOne().SetProjection(bson.M{"expires_at": 1})
	err := mcs.collection.FindOne(ctx, bson.M{"fingerprint": fingerprint(key)}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, err
	}
	if doc.ExpiresAt == nil {
		return 0, nil
	}
	if remaining := time.Until(*doc.ExpiresAt); remaining > 0 {
		return remaining, nil
	}
	return 0, nil
}

// Close MongoDB connection được quản lý bởi caller
func (mcs *MongoCacheService) Close() error {
	return nil
}

// WarmUp nạp các entry được truy cập nhiều nhất từ MongoDB vào L1
func (mcs *MongoCacheService) WarmUp(ctx context.Context, limit int) error {
	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "access_count", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := mcs.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return fmt.Errorf("lỗi warm up cache: %w", err)
	}
	defer cursor.Close(ctx)

	now := time.Now()
	count := 0
	for cursor.Next(ctx) {
		var doc models.LocationCacheDocument
		if err := cursor.Decode(&doc); err != nil {
			mcs.logger.Warn("Lỗi decode cache entry trong warm up", zap.Error(err))
			continue
		}
		if doc.IsExpired(now) {
			continue
		}
		item := memItem{data: doc.Data}
		if doc.ExpiresAt != nil {
			item.expiresAt = *doc.ExpiresAt
		}
		mcs.l1Cache.Add(doc.Key, item)
		count++
	}

	mcs.logger.Info("Cache warm up hoàn thành",
		zap.Int("loaded_items", count),
		zap.Int("l1_size", mcs.l1Cache.Len()))
	return cursor.Err()
}

// updateAccessStats cập nhật thống kê truy cập (async)
func (mcs *MongoCacheService) updateAccessStats(id primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{"last_accessed": time.Now()},
		"$inc": bson.M{"access_count": 1},
	}
	if _, err := mcs.collection.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		mcs.logger.Warn("Lỗi update access stats", zap.Error(err))
	}
}

// fingerprint sinh fingerprint cho cache key
func fingerprint(key string) string {
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("sha256:%x", hash)
}

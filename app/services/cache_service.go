package services

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// memItem payload kèm thời điểm hết hạn (zero = không hết hạn)
type memItem struct {
	data      []byte
	expiresAt time.Time
}

func (it memItem) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && !now.Before(it.expiresAt)
}

// CacheService cache in-memory có giới hạn kích thước (LRU).
// Dùng làm session tier, và làm persisted tier khi không cấu hình Redis/Mongo.
type CacheService struct {
	cache *lru.Cache[string, memItem]
	now   func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCacheService tạo mới CacheService với tối đa size key
func NewCacheService(size int) (*CacheService, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[string, memItem](size)
	if err != nil {
		return nil, fmt.Errorf("không thể tạo LRU cache: %w", err)
	}
	return &CacheService{cache: cache, now: time.Now}, nil
}

// Get lấy payload từ cache, item hết hạn bị xóa ngay khi đọc
func (cs *CacheService) Get(ctx context.Context, key string) ([]byte, bool, error) {
	item, ok := cs.cache.Get(key)
	if !ok {
		cs.misses.Add(1)
		return nil, false, nil
	}
	if item.expired(cs.now()) {
		cs.cache.Remove(key)
		cs.misses.Add(1)
		return nil, false, nil
	}
	cs.hits.Add(1)
	return item.data, true, nil
}

// Set lưu payload vào cache
func (cs *CacheService) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	item := memItem{data: append([]byte(nil), data...)}
	if ttl > 0 {
		item.expiresAt = cs.now().Add(ttl)
	}
	cs.cache.Add(key, item)
	return nil
}

// Delete xóa item khỏi cache
func (cs *CacheService) Delete(ctx context.Context, key string) error {
	cs.cache.Remove(key)
	return nil
}

// DeletePrefix xóa các key theo prefix
func (cs *CacheService) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	deleted := 0
	for _, key := range cs.cache.Keys() {
		if strings.HasPrefix(key, prefix) && cs.cache.Remove(key) {
			deleted++
		}
	}
	return deleted, nil
}

// Clear xóa toàn bộ cache
func (cs *CacheService) Clear(ctx context.Context) error {
	cs.cache.Purge()
	return nil
}

// Size lấy kích thước cache
func (cs *CacheService) Size() int {
	return cs.cache.Len()
}

// GetStats lấy thống kê cache
func (cs *CacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	hits, misses := cs.hits.Load(), cs.misses.Load()
	return &CacheStats{
		HitRate:    hitRate(hits, misses),
		TotalHits:  hits,
		TotalMiss:  misses,
		TotalItems: int64(cs.cache.Len()),
	}, nil
}

// Exists kiểm tra key có tồn tại không (không tính vào hit/miss)
func (cs *CacheService) Exists(ctx context.Context, key string) (bool, error) {
	item, ok := cs.cache.Peek(key)
	return ok && !item.expired(cs.now()), nil
}

// GetTTL lấy TTL còn lại của key, 0 nếu không có hoặc không hết hạn
func (cs *CacheService) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	item, ok := cs.cache.Peek(key)
	if !ok || item.expiresAt.IsZero() {
		return 0, nil
	}
	remaining := item.expiresAt.Sub(cs.now())
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// CleanupExpired xóa các item hết hạn
func (cs *CacheService) CleanupExpired() int {
	now := cs.now()
	removed := 0
	for _, key := range cs.cache.Keys() {
		if item, ok := cs.cache.Peek(key); ok && item.expired(now) {
			cs.cache.Remove(key)
			removed++
		}
	}
	return removed
}

// Close không cần thiết cho in-memory cache
func (cs *CacheService) Close() error {
	return nil
}

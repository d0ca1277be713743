package services

import (
	"context"
	"time"
)

// CacheStats thống kê cache
type CacheStats struct {
	HitRate    float64 `json:"hit_rate"`
	TotalHits  int64   `json:"total_hits"`
	TotalMiss  int64   `json:"total_miss"`
	TotalItems int64   `json:"total_items"`
}

// ICacheService interface cho một kho key/value của một tier cache.
// Payload là bytes đã encode; việc encode/decode và kiểm tra TTL nằm ở CacheLayer.
type ICacheService interface {
	// Get lấy payload theo key
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set lưu payload, ttl <= 0 nghĩa là không hết hạn ở tầng lưu trữ
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete xóa key
	Delete(ctx context.Context, key string) error

	// DeletePrefix xóa mọi key bắt đầu bằng prefix, trả về số key đã xóa
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// Clear xóa tất cả cache
	Clear(ctx context.Context) error

	// GetStats lấy thống kê cache
	GetStats(ctx context.Context) (*CacheStats, error)

	// Exists kiểm tra key có tồn tại không
	Exists(ctx context.Context, key string) (bool, error)

	// GetTTL lấy TTL còn lại của key
	GetTTL(ctx context.Context, key string) (time.Duration, error)

	// Close đóng kết nối (nếu cần)
	Close() error
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

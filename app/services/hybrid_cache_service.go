package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// HybridCacheService persisted tier kết hợp L1 nhanh (Redis) + L2 bền vững (MongoDB)
type HybridCacheService struct {
	l1     ICacheService
	l2     ICacheService
	logger *zap.Logger
}

// NewHybridCacheService tạo mới hybrid cache service
func NewHybridCacheService(l1, l2 ICacheService, logger *zap.Logger) *HybridCacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HybridCacheService{
		l1:     l1,
		l2:     l2,
		logger: logger,
	}
}

// Get lấy payload (L1 trước, L2 sau)
func (hcs *HybridCacheService) Get(ctx context.Context, key string) ([]byte, bool, error) {
	// 1. Thử L1
	data, found, err := hcs.l1.Get(ctx, key)
	if err != nil {
		hcs.logger.Warn("Lỗi L1 cache, fallback L2", zap.Error(err))
	} else if found {
		hcs.logger.Debug("L1 cache hit", zap.String("key", key))
		return data, true, nil
	}

	// 2. Thử L2
	data, found, err = hcs.l2.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		hcs.logger.Debug("Cache miss (both L1 & L2)", zap.String("key", key))
		return nil, false, nil
	}

	// 3. Đồng bộ lên L1 với TTL còn lại của L2
	ttl, err := hcs.l2.GetTTL(ctx, key)
	if err != nil {
		ttl = 0
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := hcs.l1.Set(bgCtx, key, data, ttl); err != nil {
			hcs.logger.Warn("Lỗi sync L2->L1", zap.Error(err), zap.String("key", key))
		}
	}()

	hcs.logger.Debug("L2 cache hit", zap.String("key", key))
	return data, true, nil
}

// Set lưu payload vào cả 2 tầng song song
func (hcs *HybridCacheService) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := hcs.both(func(c ICacheService) error { return c.Set(ctx, key, data, ttl) })
	if err != nil {
		return fmt.Errorf("cache errors: %w", err)
	}
	hcs.logger.Debug("Saved to hybrid cache", zap.String("key", key))
	return nil
}

// Delete xóa key khỏi cả 2 tầng
func (hcs *HybridCacheService) Delete(ctx context.Context, key string) error {
	if err := hcs.both(func(c ICacheService) error { return c.Delete(ctx, key) }); err != nil {
		return fmt.Errorf("delete errors: %w", err)
	}
	return nil
}

// DeletePrefix xóa theo prefix ở cả 2 tầng, trả về số key xóa được ở L2
func (hcs *HybridCacheService) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if _, err := hcs.l1.DeletePrefix(ctx, prefix); err != nil {
		hcs.logger.Warn("Lỗi xóa L1 theo prefix", zap.Error(err), zap.String("prefix", prefix))
	}
	return hcs.l2.DeletePrefix(ctx, prefix)
}

// Clear xóa toàn bộ cache
func (hcs *HybridCacheService) Clear(ctx context.Context) error {
	if err := hcs.both(func(c ICacheService) error { return c.Clear(ctx) }); err != nil {
		return fmt.Errorf("clear errors: %w", err)
	}
	hcs.logger.Info("Cleared hybrid cache (L1 + L2)")
	return nil
}

// GetStats lấy thống kê cache (kết hợp từ cả 2)
func (hcs *HybridCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	l1Stats, l1Err := hcs.l1.GetStats(ctx)
	l2Stats, l2Err := hcs.l2.GetStats(ctx)

	switch {
	case l1Err != nil && l2Err != nil:
		return nil, fmt.Errorf("cả L1 và L2 đều lỗi: %v, %v", l1Err, l2Err)
	case l1Err != nil:
		return l2Stats, nil
	case l2Err != nil:
		return l1Stats, nil
	}

	// L2 chứa mọi key của L1 nên số item lấy theo L2
	hits := l1Stats.TotalHits + l2Stats.TotalHits
	return &CacheStats{
		HitRate:    hitRate(hits, l2Stats.TotalMiss),
		TotalHits:  hits,
		TotalMiss:  l2Stats.TotalMiss,
		TotalItems: l2Stats.TotalItems,
	}, nil
}

// Exists kiểm tra key có tồn tại không (L1 trước, L2 sau)
func (hcs *HybridCacheService) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := hcs.l1.Exists(ctx, key)
	if err != nil {
		hcs.logger.Warn("Lỗi check L1 exists, fallback L2", zap.Error(err))
	} else if exists {
		return true, nil
	}
	return hcs.l2.Exists(ctx, key)
}

// GetTTL lấy TTL của key từ L2
func (hcs *HybridCacheService) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	return hcs.l2.GetTTL(ctx, key)
}

// Close đóng kết nối cả 2 tầng
func (hcs *HybridCacheService) Close() error {
	if err := hcs.both(func(c ICacheService) error { return c.Close() }); err != nil {
		return fmt.Errorf("close errors: %w", err)
	}
	return nil
}

// both chạy fn song song trên L1 và L2 rồi gộp lỗi
func (hcs *HybridCacheService) both(fn func(ICacheService) error) error {
	errCh := make(chan error, 2)
	for _, c := range []ICacheService{hcs.l1, hcs.l2} {
		go func(c ICacheService) {
			errCh <- fn(c)
		}(c)
	}

	var errs []error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

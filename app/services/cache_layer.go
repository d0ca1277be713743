package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/location-resolver/app/models"
	"github.com/location-resolver/internal/metrics"
	"go.uber.org/zap"
)

// ErrCacheCorruption entry trong store không decode được hoặc không khớp key
var ErrCacheCorruption = errors.New("cache entry bị hỏng")

// CacheCorruptionError lỗi corruption kèm key
type CacheCorruptionError struct {
	Key  string
	Tier models.CacheTier
	Err  error
}

func (e *CacheCorruptionError) Error() string {
	return fmt.Sprintf("cache entry %q (%s) bị hỏng: %v", e.Key, e.Tier, e.Err)
}

// Unwrap cho phép errors.Is(err, ErrCacheCorruption)
func (e *CacheCorruptionError) Unwrap() error { return ErrCacheCorruption }

// CacheLayerConfig cấu hình TTL cho từng tier
type CacheLayerConfig struct {
	SessionTTL   time.Duration // <= 0: sống hết session
	PersistedTTL time.Duration
	Now          func() time.Time
}

// TierStats thống kê một tier
type TierStats struct {
	Tier  string      `json:"tier"`
	Stats *CacheStats `json:"stats,omitempty"`
	Error string      `json:"error,omitempty"`
}

// CacheLayer hai tier cache độc lập: session và persisted.
// TTL được kiểm tra mỗi lần đọc; entry hết hạn hoặc hỏng bị xóa và coi như miss.
type CacheLayer struct {
	session   ICacheService
	persisted ICacheService
	cfg       CacheLayerConfig
	logger    *zap.Logger
}

// NewCacheLayer tạo mới CacheLayer
func NewCacheLayer(session, persisted ICacheService, cfg CacheLayerConfig, logger *zap.Logger) *CacheLayer {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheLayer{
		session:   session,
		persisted: persisted,
		cfg:       cfg,
		logger:    logger,
	}
}

// Get tìm entry còn hạn theo key, session tier trước rồi persisted tier
func (cl *CacheLayer) Get(ctx context.Context, key string) (*models.CacheEntry, bool) {
	for _, tier := range []models.CacheTier{models.TierSession, models.TierPersisted} {
		entry, err := cl.read(ctx, tier, key)
		if err != nil {
			var corrupt *CacheCorruptionError
			if errors.As(err, &corrupt) {
				metrics.CacheCorruptTotal.WithLabelValues(tier.String()).Inc()
				cl.logger.Warn("Cache entry hỏng, xóa và coi như miss", zap.Error(err))
				cl.evict(ctx, tier, key)
			} else {
				cl.logger.Warn("Lỗi đọc cache", zap.String("tier", tier.String()), zap.Error(err))
			}
			continue
		}
		if entry == nil {
			continue
		}
		if !entry.IsValid(cl.cfg.Now()) {
			metrics.CacheExpiredTotal.WithLabelValues(tier.String()).Inc()
			cl.logger.Debug("Cache entry hết hạn", zap.String("key", key), zap.String("tier", tier.String()))
			cl.evict(ctx, tier, key)
			continue
		}
		metrics.CacheHitsTotal.WithLabelValues(tier.String()).Inc()
		return entry, true
	}
	metrics.CacheMissesTotal.Inc()
	return nil, false
}

// Put lưu value vào tier với TTL của tier đó
func (cl *CacheLayer) Put(ctx context.Context, key string, value []models.LocationOption, tier models.CacheTier) error {
	entry := models.CacheEntry{
		Key:      key,
		Value:    value,
		StoredAt: cl.cfg.Now(),
		TTL:      cl.ttl(tier),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("lỗi encode cache entry: %w", err)
	}
	if err := cl.store(tier).Set(ctx, key, data, entry.TTL); err != nil {
		return fmt.Errorf("lỗi lưu cache %s: %w", tier, err)
	}
	return nil
}

// Flush xóa mọi entry có key bắt đầu bằng prefix trên cả hai tier
func (cl *CacheLayer) Flush(ctx context.Context, prefix string) (int, error) {
	total := 0
	var errs []error
	for _, tier := range []models.CacheTier{models.TierSession, models.TierPersisted} {
		n, err := cl.store(tier).DeletePrefix(ctx, prefix)
		total += n
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", tier, err))
		}
	}
	cl.logger.Info("Flush cache", zap.String("prefix", prefix), zap.Int("deleted", total))
	return total, errors.Join(errs...)
}

// Stats thống kê hai tier
func (cl *CacheLayer) Stats(ctx context.Context) []TierStats {
	out := make([]TierStats, 0, 2)
	for _, tier := range []models.CacheTier{models.TierSession, models.TierPersisted} {
		ts := TierStats{Tier: tier.String()}
		stats, err := cl.store(tier).GetStats(ctx)
		if err != nil {
			ts.Error = err.Error()
		} else {
			ts.Stats = stats
		}
		out = append(out, ts)
	}
	return out
}

func (cl *CacheLayer) read(ctx context.Context, tier models.CacheTier, key string) (*models.CacheEntry, error) {
	data, found, err := cl.store(tier).Get(ctx, key)
	if err != nil || !found {
		return nil, err
	}
	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, &CacheCorruptionError{Key: key, Tier: tier, Err: err}
	}
	if entry.Key != key {
		return nil, &CacheCorruptionError{Key: key, Tier: tier, Err: fmt.Errorf("key không khớp: %q", entry.Key)}
	}
	return &entry, nil
}

func (cl *CacheLayer) evict(ctx context.Context, tier models.CacheTier, key string) {
	if err := cl.store(tier).Delete(ctx, key); err != nil {
		cl.logger.Warn("Lỗi xóa cache entry", zap.String("key", key), zap.Error(err))
	}
}

func (cl *CacheLayer) store(tier models.CacheTier) ICacheService {
	if tier == models.TierPersisted {
		return cl.persisted
	}
	return cl.session
}

func (cl *CacheLayer) ttl(tier models.CacheTier) time.Duration {
	if tier == models.TierPersisted {
		return cl.cfg.PersistedTTL
	}
	return cl.cfg.SessionTTL
}

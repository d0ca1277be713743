// Package warmer định kỳ nạp danh sách country và state của các country cấu hình
// vào persisted tier, để session mới không phải chờ remote.
package warmer

import (
	"context"
	"time"

	"github.com/location-resolver/app/models"
	"github.com/location-resolver/internal/remote"
	"github.com/location-resolver/internal/resolver"
	"go.uber.org/zap"
)

// Config cấu hình Warmer
type Config struct {
	Interval  time.Duration
	Countries []string
	Resolver  resolver.Config
}

// Result kết quả một lượt warm
type Result struct {
	Countries int
	States    map[string]int
}

// Warmer chạy Resolve trên một resolver riêng cho mỗi lượt
type Warmer struct {
	cache    resolver.Cache
	source   remote.Source
	fallback resolver.Fallback
	cfg      Config
	logger   *zap.Logger
}

// New tạo mới Warmer; country và state luôn được ghi vào persisted tier
func New(cache resolver.Cache, source remote.Source, fallback resolver.Fallback, cfg Config, logger *zap.Logger) *Warmer {
	if cfg.Interval <= 0 {
		cfg.Interval = 6 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Resolver.PersistLevels = appendMissing(cfg.Resolver.PersistLevels, models.LevelCountry, models.LevelState)
	return &Warmer{
		cache:    cache,
		source:   source,
		fallback: fallback,
		cfg:      cfg,
		logger:   logger,
	}
}

// WarmOnce một lượt warm
func (w *Warmer) WarmOnce(ctx context.Context) Result {
	r := resolver.New(w.cache, w.source, w.fallback, w.cfg.Resolver, w.logger)
	defer r.Close()

	res := Result{States: make(map[string]int, len(w.cfg.Countries))}
	res.Countries = len(r.Resolve(ctx, models.LevelCountry, models.Selection{}))

	for _, code := range w.cfg.Countries {
		if ctx.Err() != nil {
			break
		}
		states := r.Resolve(ctx, models.LevelState, models.Selection{Country: code})
		res.States[code] = len(states)
	}

	w.logger.Info("Warm cache xong",
		zap.Int("countries", res.Countries),
		zap.Any("states", res.States))
	return res
}

// Run warm ngay rồi lặp theo Interval cho đến khi ctx bị hủy
func (w *Warmer) Run(ctx context.Context) {
	w.WarmOnce(ctx)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.WarmOnce(ctx)
		}
	}
}

func appendMissing(levels []models.LocationLevel, want ...models.LocationLevel) []models.LocationLevel {
	out := append([]models.LocationLevel(nil), levels...)
	for _, l := range want {
		found := false
		for _, have := range out {
			if have == l {
				found = true
				break
			}
		}
		if !found {
			out = append(out, l)
		}
	}
	return out
}

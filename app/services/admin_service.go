package services

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AdminService service quản lý admin functions
type AdminService struct {
	sessions  *SessionManager
	keyPrefix string
	startedAt time.Time
	logger    *zap.Logger
}

// SystemStats thống kê hệ thống
type SystemStats struct {
	Uptime         string                 `json:"uptime"`
	ActiveSessions int                    `json:"active_sessions"`
	MemoryUsage    map[string]interface{} `json:"memory_usage"`
	Goroutines     int                    `json:"goroutines"`
	PersistedCache *CacheStats            `json:"persisted_cache,omitempty"`
	CacheError     string                 `json:"cache_error,omitempty"`
}

// FlushResult kết quả flush cache
type FlushResult struct {
	Prefix  string `json:"prefix"`
	Deleted int    `json:"deleted"`
}

// NewAdminService tạo mới AdminService
func NewAdminService(sessions *SessionManager, keyPrefix string, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		sessions:  sessions,
		keyPrefix: keyPrefix,
		startedAt: time.Now(),
		logger:    logger,
	}
}

// FlushCache xóa các entry option list theo prefix.
// prefix rỗng xóa toàn bộ namespace; prefix ngoài namespace được gắn namespace vào trước.
func (as *AdminService) FlushCache(ctx context.Context, prefix string) (*FlushResult, error) {
	prefix = strings.TrimSpace(prefix)
	if !strings.HasPrefix(prefix, as.keyPrefix) {
		prefix = as.keyPrefix + prefix
	}

	deleted, err := as.sessions.Flush(ctx, prefix)
	if err != nil {
		as.logger.Error("Lỗi flush cache", zap.String("prefix", prefix), zap.Error(err))
		return nil, fmt.Errorf("lỗi flush cache: %w", err)
	}
	return &FlushResult{Prefix: prefix, Deleted: deleted}, nil
}

// GetSystemStats lấy thống kê hệ thống
func (as *AdminService) GetSystemStats(ctx context.Context) *SystemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := &SystemStats{
		Uptime:         time.Since(as.startedAt).Round(time.Second).String(),
		ActiveSessions: as.sessions.Len(),
		Goroutines:     runtime.NumGoroutine(),
		MemoryUsage: map[string]interface{}{
			"alloc_mb":       bToMb(m.Alloc),
			"total_alloc_mb": bToMb(m.TotalAlloc),
			"sys_mb":         bToMb(m.Sys),
			"num_gc":         m.NumGC,
		},
	}

	cacheStats, err := as.sessions.PersistedStats(ctx)
	if err != nil {
		stats.CacheError = err.Error()
	} else {
		stats.PersistedCache = cacheStats
	}
	return stats
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}

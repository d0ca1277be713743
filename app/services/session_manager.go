package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/location-resolver/app/models"
	"github.com/location-resolver/helpers/utils"
	"github.com/location-resolver/internal/metrics"
	"github.com/location-resolver/internal/remote"
	"github.com/location-resolver/internal/resolver"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// ErrSessionNotFound session không tồn tại hoặc đã bị evict
var ErrSessionNotFound = errors.New("session không tồn tại")

// Session một phiên chọn địa điểm: một Resolver với session tier riêng
type Session struct {
	ID        string
	ClientID  string
	CreatedAt time.Time
	Resolver  *resolver.Resolver

	store *CacheService
	layer *CacheLayer
}

// SessionConfig cấu hình SessionManager
type SessionConfig struct {
	MaxSessions  int
	SessionSize  int
	SessionTTL   time.Duration
	PersistedTTL time.Duration
	Resolver     resolver.Config
}

// SessionManager giữ các session trong LRU có giới hạn; session bị evict được Close
type SessionManager struct {
	sessions   *lru.Cache[string, *Session]
	persisted  ICacheService
	selections *SelectionStore
	source     remote.Source
	fallback   resolver.Fallback
	cfg        SessionConfig
	logger     *zap.Logger

	mu sync.Mutex
}

// NewSessionManager tạo mới SessionManager
func NewSessionManager(persisted ICacheService, selections *SelectionStore, source remote.Source, fallback resolver.Fallback, cfg SessionConfig, logger *zap.Logger) (*SessionManager, error) {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 10000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	sm := &SessionManager{
		persisted:  persisted,
		selections: selections,
		source:     source,
		fallback:   fallback,
		cfg:        cfg,
		logger:     logger,
	}

	sessions, err := lru.NewWithEvict[string, *Session](cfg.MaxSessions, sm.onEvict)
	if err != nil {
		return nil, fmt.Errorf("không thể tạo session LRU: %w", err)
	}
	sm.sessions = sessions
	return sm, nil
}

func (sm *SessionManager) onEvict(id string, s *Session) {
	s.Resolver.Close()
	metrics.ActiveSessions.Dec()
	sm.logger.Debug("Đóng session", zap.String("session_id", id), zap.String("client_id", s.ClientID))
}

// Create tạo session mới, Selection được hydrate từ SelectionStore theo clientID
func (sm *SessionManager) Create(ctx context.Context, clientID string) (*Session, error) {
	store, err := NewCacheService(sm.cfg.SessionSize)
	if err != nil {
		return nil, err
	}
	layer := NewCacheLayer(store, sm.persisted, CacheLayerConfig{
		SessionTTL:   sm.cfg.SessionTTL,
		PersistedTTL: sm.cfg.PersistedTTL,
	}, sm.logger)

	s := &Session{
		ID:        utils.GenerateSessionID(),
		ClientID:  clientID,
		CreatedAt: time.Now(),
		Resolver:  resolver.New(layer, sm.source, sm.fallback, sm.cfg.Resolver, sm.logger.With(zap.String("client_id", clientID))),
		store:     store,
		layer:     layer,
	}
	if sm.selections != nil {
		s.Resolver.Hydrate(sm.selections.Load(ctx, clientID))
	}

	sm.sessions.Add(s.ID, s)
	metrics.ActiveSessions.Inc()
	sm.logger.Info("Tạo session", zap.String("session_id", s.ID), zap.String("client_id", clientID))
	return s, nil
}

// Get lấy session theo ID
func (sm *SessionManager) Get(id string) (*Session, error) {
	s, ok := sm.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete đóng và xóa session
func (sm *SessionManager) Delete(id string) error {
	if !sm.sessions.Remove(id) {
		return ErrSessionNotFound
	}
	return nil
}

// Len số session đang sống
func (sm *SessionManager) Len() int {
	return sm.sessions.Len()
}

// Select chọn giá trị cho level và lưu Selection của client
func (sm *SessionManager) Select(ctx context.Context, s *Session, level models.LocationLevel, value string) models.Selection {
	sel := s.Resolver.Select(level, value)
	sm.saveSelection(ctx, s, sel)
	return sel
}

// Search ghi nhận text gõ tự do và lưu Selection của client
func (sm *SessionManager) Search(ctx context.Context, s *Session, level models.LocationLevel, text string) models.Selection {
	s.Resolver.Search(level, text)
	sel := s.Resolver.Selection()
	sm.saveSelection(ctx, s, sel)
	return sel
}

func (sm *SessionManager) saveSelection(ctx context.Context, s *Session, sel models.Selection) {
	if sm.selections == nil {
		return
	}
	if err := sm.selections.Save(ctx, s.ClientID, sel); err != nil {
		sm.logger.Warn("Không thể lưu selection", zap.String("client_id", s.ClientID), zap.Error(err))
	}
}

// Flush xóa cache theo prefix trên persisted tier và session tier của mọi session
func (sm *SessionManager) Flush(ctx context.Context, prefix string) (int, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	total, err := sm.persisted.DeletePrefix(ctx, prefix)
	for _, id := range sm.sessions.Keys() {
		s, ok := sm.sessions.Peek(id)
		if !ok {
			continue
		}
		n, _ := s.store.DeletePrefix(ctx, prefix)
		total += n
	}
	sm.logger.Info("Flush cache", zap.String("prefix", prefix), zap.Int("deleted", total))
	return total, err
}

// PersistedStats thống kê persisted tier
func (sm *SessionManager) PersistedStats(ctx context.Context) (*CacheStats, error) {
	return sm.persisted.GetStats(ctx)
}

// Close đóng mọi session
func (sm *SessionManager) Close() {
	sm.sessions.Purge()
}

// CacheStats thống kê hai tier cache của session
func (s *Session) CacheStats(ctx context.Context) []TierStats {
	return s.layer.Stats(ctx)
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/location-resolver/app/models"
	"go.uber.org/zap"
)

// SelectionStore lưu Selection cuối cùng của mỗi client trên persisted tier,
// tách biệt với các entry option list.
type SelectionStore struct {
	store  ICacheService
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewSelectionStore tạo mới SelectionStore
func NewSelectionStore(store ICacheService, key string, ttl time.Duration, logger *zap.Logger) *SelectionStore {
	if key == "" {
		key = "tl_location"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SelectionStore{store: store, key: key, ttl: ttl, logger: logger}
}

func (ss *SelectionStore) storageKey(clientID string) string {
	return ss.key + ":" + clientID
}

// Load đọc Selection đã lưu; không có hoặc hỏng thì trả về Selection rỗng
func (ss *SelectionStore) Load(ctx context.Context, clientID string) models.Selection {
	if clientID == "" {
		return models.Selection{}
	}
	key := ss.storageKey(clientID)
	data, found, err := ss.store.Get(ctx, key)
	if err != nil {
		ss.logger.Warn("Lỗi đọc selection", zap.String("client_id", clientID), zap.Error(err))
		return models.Selection{}
	}
	if !found {
		return models.Selection{}
	}

	var sel models.Selection
	if err := json.Unmarshal(data, &sel); err != nil {
		ss.logger.Warn("Selection đã lưu bị hỏng, bỏ qua",
			zap.String("client_id", clientID),
			zap.Error(&CacheCorruptionError{Key: key, Tier: models.TierPersisted, Err: err}))
		if err := ss.store.Delete(ctx, key); err != nil {
			ss.logger.Warn("Lỗi xóa selection hỏng", zap.Error(err))
		}
		return models.Selection{}
	}
	return sel.Coherent()
}

// Save ghi Selection của client
func (ss *SelectionStore) Save(ctx context.Context, clientID string, sel models.Selection) error {
	if clientID == "" {
		return nil
	}
	data, err := json.Marshal(sel.Coherent())
	if err != nil {
		return fmt.Errorf("lỗi encode selection: %w", err)
	}
	return ss.store.Set(ctx, ss.storageKey(clientID), data, ss.ttl)
}

// Forget xóa Selection đã lưu của client
func (ss *SelectionStore) Forget(ctx context.Context, clientID string) error {
	return ss.store.Delete(ctx, ss.storageKey(clientID))
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/location-resolver/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type layerFixture struct {
	layer     *CacheLayer
	session   *CacheService
	persisted *CacheService
	now       time.Time
}

func newLayerFixture(t *testing.T, persistedTTL time.Duration) *layerFixture {
	t.Helper()
	f := &layerFixture{
		session:   newMemStore(t),
		persisted: newMemStore(t),
		now:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.layer = NewCacheLayer(f.session, f.persisted, CacheLayerConfig{
		PersistedTTL: persistedTTL,
		Now:          func() time.Time { return f.now },
	}, zap.NewNop())
	return f
}

var indiaStates = []models.LocationOption{
	{Code: "AP", Name: "Andhra Pradesh"},
	{Code: "PB", Name: "Punjab"},
}

func TestCacheLayer_PutGet(t *testing.T) {
	ctx := context.Background()
	f := newLayerFixture(t, time.Hour)

	require.NoError(t, f.layer.Put(ctx, "state:IN", indiaStates, models.TierSession))

	entry, ok := f.layer.Get(ctx, "state:IN")
	require.True(t, ok)
	assert.Equal(t, "state:IN", entry.Key)
	assert.Equal(t, indiaStates, entry.Value)
	assert.Equal(t, f.now, entry.StoredAt.UTC())
	assert.Zero(t, entry.TTL)

	_, ok = f.layer.Get(ctx, "state:US")
	assert.False(t, ok)
}

func TestCacheLayer_TTLBoundary(t *testing.T) {
	ctx := context.Background()
	ttl := 7 * 24 * time.Hour
	f := newLayerFixture(t, ttl)
	stored := f.now

	require.NoError(t, f.layer.Put(ctx, "country", indiaStates, models.TierPersisted))

	f.now = stored.Add(ttl - time.Nanosecond)
	_, ok := f.layer.Get(ctx, "country")
	assert.True(t, ok, "trước T+D phải hit")

	f.now = stored.Add(ttl)
	_, ok = f.layer.Get(ctx, "country")
	assert.False(t, ok, "tại T+D phải miss")

	// entry hết hạn bị xóa ngay khi đọc
	assert.Equal(t, 0, f.persisted.Size())
}

func TestCacheLayer_SessionTierIgnoresClock(t *testing.T) {
	ctx := context.Background()
	f := newLayerFixture(t, time.Minute)

	require.NoError(t, f.layer.Put(ctx, "city:IN|PB", []models.LocationOption{{Name: "Ludhiana"}}, models.TierSession))
	f.now = f.now.Add(365 * 24 * time.Hour)

	_, ok := f.layer.Get(ctx, "city:IN|PB")
	assert.True(t, ok)
}

func TestCacheLayer_CorruptedEntryIsMissAndEvicted(t *testing.T) {
	ctx := context.Background()
	f := newLayerFixture(t, time.Hour)

	require.NoError(t, f.persisted.Set(ctx, "country", []byte("{not json"), 0))
	_, ok := f.layer.Get(ctx, "country")
	assert.False(t, ok)
	assert.Equal(t, 0, f.persisted.Size())

	// key trong payload không khớp key lưu
	require.NoError(t, f.layer.Put(ctx, "state:IN", indiaStates, models.TierSession))
	data, _, err := f.session.Get(ctx, "state:IN")
	require.NoError(t, err)
	require.NoError(t, f.session.Set(ctx, "state:US", data, 0))

	_, ok = f.layer.Get(ctx, "state:US")
	assert.False(t, ok)
	exists, err := f.session.Exists(ctx, "state:US")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCacheLayer_Flush(t *testing.T) {
	ctx := context.Background()
	f := newLayerFixture(t, time.Hour)

	require.NoError(t, f.layer.Put(ctx, "loc:v1:country", indiaStates, models.TierPersisted))
	require.NoError(t, f.layer.Put(ctx, "loc:v1:state:IN", indiaStates, models.TierSession))
	require.NoError(t, f.layer.Put(ctx, "keep", indiaStates, models.TierSession))

	n, err := f.layer.Flush(ctx, "loc:v1:")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok := f.layer.Get(ctx, "keep")
	assert.True(t, ok)

	stats := f.layer.Stats(ctx)
	require.Len(t, stats, 2)
	assert.Equal(t, "session", stats[0].Tier)
	assert.Equal(t, int64(1), stats[0].Stats.TotalItems)
}

func TestCacheCorruptionError_Is(t *testing.T) {
	err := error(&CacheCorruptionError{Key: "k", Tier: models.TierPersisted, Err: assert.AnError})
	assert.ErrorIs(t, err, ErrCacheCorruption)
	assert.Contains(t, err.Error(), "persisted")
}

package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/location-resolver/app/config"
	"github.com/location-resolver/app/models"
	"github.com/location-resolver/app/services"
	"github.com/location-resolver/internal/remote"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPersistedStore_MemoryWithoutBackends(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("cache.l1_size", 32)

	store, cleanup, err := PersistedStore(context.Background(), zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &services.CacheService{}, store)
}

func TestPersistedStore_BadRedisURL(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("redis.url", "not-a-url")

	_, _, err := PersistedStore(context.Background(), zap.NewNop())
	assert.Error(t, err)
}

func TestSource_Kinds(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	src, err := Source(zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &remote.HTTPSource{}, src)

	viper.Set("source.kind", "carrier-pigeon")
	_, err = Source(zap.NewNop())
	assert.Error(t, err)
}

func TestSessionConfig_FromResolverConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	defer func() { config.C = config.Default() }()
	config.C.Debounce.SearchDelay = 150 * time.Millisecond
	viper.Set("sessions.max", 42)

	cfg := SessionConfig()
	assert.Equal(t, 42, cfg.MaxSessions)
	assert.Equal(t, 7*24*time.Hour, cfg.PersistedTTL)
	assert.Equal(t, 150*time.Millisecond, cfg.Resolver.SearchDelay)
	assert.Equal(t, "loc:v1:", cfg.Resolver.KeyPrefix)
	assert.Equal(t, []models.LocationLevel{models.LevelCountry}, cfg.Resolver.PersistLevels)
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("BOOTSTRAP_TEST_INT", "12")
	assert.Equal(t, 12, getEnvInt("BOOTSTRAP_TEST_INT", 3))

	t.Setenv("BOOTSTRAP_TEST_INT", "x")
	assert.Equal(t, 3, getEnvInt("BOOTSTRAP_TEST_INT", 3))
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryCache(ttl time.Duration) CacheServiceInterface {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewCacheService(nil, ttl, log)
}

func TestMemoryCache_SetGetDelete(t *testing.T) {
	cache := newMemoryCache(time.Minute)
	ctx := context.Background()

	_, err := cache.Get(ctx, "missing")
	assert.Error(t, err)

	require.NoError(t, cache.Set(ctx, "k", "v"))
	val, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	require.NoError(t, cache.Delete(ctx, "k"))
	_, err = cache.Get(ctx, "k")
	assert.Error(t, err)
}

func TestMemoryCache_Expiry(t *testing.T) {
	cache := newMemoryCache(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", "v"))
	time.Sleep(20 * time.Millisecond)

	_, err := cache.Get(ctx, "k")
	assert.Error(t, err)
}

func TestMemoryCache_Clear(t *testing.T) {
	cache := newMemoryCache(time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", "1"))
	require.NoError(t, cache.Set(ctx, "b", "2"))
	require.NoError(t, cache.Clear(ctx))

	_, err := cache.Get(ctx, "a")
	assert.Error(t, err)
	_, err = cache.Get(ctx, "b")
	assert.Error(t, err)
}

func TestMemoryCache_Health(t *testing.T) {
	cache := newMemoryCache(time.Minute)
	health := cache.Health()
	assert.Equal(t, "disabled", health["redis"])
}

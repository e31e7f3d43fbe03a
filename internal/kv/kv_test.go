package kv_test

import (
	"context"
	"testing"
	"time"

	"github.com/perchlabs/perch/internal/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis spins up a Redis container and returns a connected RedisStore.
func setupRedis(t *testing.T) *kv.RedisStore {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	redisURL := "redis://" + host + ":" + port.Port()
	rs, err := kv.NewRedisStore(redisURL)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, rs.Close()) })

	return rs
}

func TestRedisStore_SaveLoadRoundtrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rs := setupRedis(t)
	ctx := context.Background()

	err := rs.Save(ctx, "test:key", []byte(`{"jobs":[]}`))
	require.NoError(t, err)

	val, found, err := rs.Load(ctx, "test:key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte(`{"jobs":[]}`), val)
}

func TestRedisStore_LoadMissing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rs := setupRedis(t)

	val, found, err := rs.Load(context.Background(), "nonexistent:key")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)
}

func TestRedisStore_SaveOverwrites(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rs := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, rs.Save(ctx, "over:key", []byte("first")))
	require.NoError(t, rs.Save(ctx, "over:key", []byte("second")))

	val, found, err := rs.Load(ctx, "over:key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("second"), val)
}

func TestRedisStore_IncrWithExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rs := setupRedis(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		val, err := rs.IncrWithExpiry(ctx, "ratelimit:test", 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, val)
	}
}

// --- MemoryStore ---

func TestMemoryStore_SaveLoadRoundtrip(t *testing.T) {
	ms := kv.NewMemoryStore()
	ctx := context.Background()

	_, found, err := ms.Load(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, ms.Save(ctx, "k", []byte("v1")))
	require.NoError(t, ms.Save(ctx, "k", []byte("v2")))

	val, found, err := ms.Load(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v2"), val)
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	ms := kv.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, ms.Save(ctx, "k", []byte("abc")))

	val, _, err := ms.Load(ctx, "k")
	require.NoError(t, err)
	val[0] = 'x'

	val2, _, err := ms.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), val2)
}

func TestMemoryStore_IncrWithExpiry(t *testing.T) {
	ms := kv.NewMemoryStore()
	ctx := context.Background()

	v1, err := ms.IncrWithExpiry(ctx, "c", time.Second)
	require.NoError(t, err)
	v2, err := ms.IncrWithExpiry(ctx, "c", time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1)
	assert.Equal(t, int64(2), v2)
}

// --- Key builders ---

func TestJobStateKey(t *testing.T) {
	assert.Equal(t, "jobs:state", kv.JobStateKey())
}

func TestCatalogKey(t *testing.T) {
	assert.Equal(t, "catalog:models:claude", kv.CatalogKey("claude"))
	assert.Equal(t, "catalog:models:openai", kv.CatalogKey("openai"))
}

func TestRateLimitKey(t *testing.T) {
	assert.Equal(t, "ratelimit:pk_abcd1234", kv.RateLimitKey("pk_abcd1234"))
}

func TestKeyBuilders_NonColliding(t *testing.T) {
	keys := map[string]bool{
		kv.JobStateKey():          true,
		kv.CatalogKey("claude"):   true,
		kv.CatalogKey("openai"):   true,
		kv.RateLimitKey("pk_abc"): true,
	}
	assert.Len(t, keys, 4, "all keys should be unique")
}

package directory_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/returnnullptr/runa/directory"
)

var (
	testRedisClient    *redis.Client
	testRedisContainer testcontainers.Container
	skipRedisTests     bool
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	var containerErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				containerErr = fmt.Errorf("docker not available: %v", r)
			}
		}()
		req := testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		}
		testRedisContainer, containerErr = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
	}()

	if containerErr != nil {
		fmt.Printf("Docker not available, redis-backed directory tests will be skipped: %v\n", containerErr)
		skipRedisTests = true
	} else {
		host, err := testRedisContainer.Host(ctx)
		if err != nil {
			fmt.Printf("failed to get container host: %v\n", err)
			skipRedisTests = true
		} else {
			port, err := testRedisContainer.MappedPort(ctx, "6379")
			if err != nil {
				fmt.Printf("failed to get container port: %v\n", err)
				skipRedisTests = true
			} else {
				testRedisClient = redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
				if err := testRedisClient.Ping(ctx).Err(); err != nil {
					fmt.Printf("failed to ping redis: %v\n", err)
					skipRedisTests = true
				}
			}
		}
	}

	code := m.Run()

	if testRedisClient != nil {
		_ = testRedisClient.Close()
	}
	if testRedisContainer != nil {
		_ = testRedisContainer.Terminate(ctx)
	}
	os.Exit(code)
}

// getRedis returns the shared client, flushing it first for test isolation.
func getRedis(t *testing.T) *redis.Client {
	t.Helper()
	if skipRedisTests {
		t.Skip("Docker not available, skipping redis-backed directory test")
	}
	require.NoError(t, testRedisClient.FlushDB(context.Background()).Err())
	return testRedisClient
}

// TestRedisCacheRoundTrip exercises directory.RedisCache against a real
// Redis instance: Set/Get/Delete must behave the same as MemoryCache's own
// in-process round trip (cache_test.go), just durable across Cache values.
func TestRedisCacheRoundTrip(t *testing.T) {
	rdb := getRedis(t)
	ctx := context.Background()
	cache := directory.NewRedisCache(rdb, "rund-test:")

	require.NoError(t, cache.Set(ctx, "users", "users.internal:443", time.Minute))

	endpoint, ok, err := cache.Get(ctx, "users")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "users.internal:443", endpoint)

	_, ok, err = cache.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Delete(ctx, "users"))
	_, ok, err = cache.Get(ctx, "users")
	require.NoError(t, err)
	require.False(t, ok)
}

// TestRedisCacheExpiry confirms TTLs are enforced by Redis itself rather
// than by any client-side bookkeeping.
func TestRedisCacheExpiry(t *testing.T) {
	rdb := getRedis(t)
	ctx := context.Background()
	cache := directory.NewRedisCache(rdb, "rund-test:")

	require.NoError(t, cache.Set(ctx, "users", "users.internal:443", 50*time.Millisecond))
	time.Sleep(200 * time.Millisecond)

	_, ok, err := cache.Get(ctx, "users")
	require.NoError(t, err)
	require.False(t, ok)
}

// TestManagerWithRedisCache drives directory.Manager end to end with a
// RedisCache backing it instead of the default MemoryCache, confirming the
// resolver-fallback/write-back path works against the real adapter.
func TestManagerWithRedisCache(t *testing.T) {
	rdb := getRedis(t)
	ctx := context.Background()
	cache := directory.NewRedisCache(rdb, "rund-test:")

	resolver := &fakeResolver{endpt: "articles.internal:443"}
	m := directory.NewManager(directory.WithCache(cache), directory.WithResolver(resolver), directory.WithTTL(time.Minute))

	endpoint, err := m.Resolve(ctx, "Article")
	require.NoError(t, err)
	require.Equal(t, "articles.internal:443", endpoint)

	endpoint, err = m.Resolve(ctx, "Article")
	require.NoError(t, err)
	require.Equal(t, "articles.internal:443", endpoint)
	require.Equal(t, 1, resolver.calls, "second Resolve should be served from the redis cache")
}

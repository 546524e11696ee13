package cache_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/Denizmerty/PiTime/pkg/cache"
	"github.com/alicebob/miniredis"
)

const testCacheLoopLimit = 10

// The NoopCache should do nothing useful. This test confirms that values can
// appear to be added successfully, but an attempt to recall the value will
// result in an empty string.
func TestNoopCache(t *testing.T) {
	ctx := context.Background()
	noop := cache.NewNoopCache()
	if noop == nil {
		t.Error("Noop cache is nil")
	}
	for i := 0; i < testCacheLoopLimit; i++ {
		key := strconv.FormatInt(int64(i*100), 16)
		actual, err := noop.GetValue(ctx, key)
		if err != nil {
			t.Errorf("GetValue returned an error: %v", err)
		}
		if actual != "" {
			t.Errorf("Key %s: expected empty string, received %s", key, actual)
		}
		if err = noop.SetValue(ctx, key, "14159"); err != nil {
			t.Errorf("Key %s: SetValue returned an error: %v", key, err)
		}
		actual, err = noop.GetValue(ctx, key)
		if err != nil {
			t.Errorf("GetValue returned an error: %v", err)
		}
		if actual != "" {
			t.Errorf("Key %s: expected empty string, received %s", key, actual)
		}
	}
}

// The RedisCache will use a Redis-like in-memory instance to cache digit
// runs. The test should confirm that a value can be added to the cache and
// recalled successfully, and that a miss is not an error.
func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mock, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Error running miniredis: %v", err)
	}
	defer mock.Close()
	redisCache := cache.NewRedisCache(ctx, mock.Addr(),
		cache.WithMaxIdleConnections(2),
		cache.WithIdleTimeout(time.Minute),
	)
	if redisCache == nil {
		t.Fatal("Redis cache is nil")
	}
	for i := 0; i < testCacheLoopLimit; i++ {
		key := strconv.FormatInt(int64(i*100), 16)
		actual, err := redisCache.GetValue(ctx, key)
		if err != nil {
			t.Errorf("GetValue returned an error: %v", err)
		}
		if actual != "" {
			t.Errorf("Key %s: expected cache miss, received %s", key, actual)
		}
		expected := strconv.Itoa(i) + "1415926535"
		if err = redisCache.SetValue(ctx, key, expected); err != nil {
			t.Errorf("Key %s: SetValue returned an error: %v", key, err)
		}
		actual, err = redisCache.GetValue(ctx, key)
		if err != nil {
			t.Errorf("GetValue returned an error: %v", err)
		}
		if actual != expected {
			t.Errorf("Key %s: expected %s received %s", key, expected, actual)
		}
	}
}

func TestRedisCache_Unreachable(t *testing.T) {
	ctx := context.Background()
	mock, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Error running miniredis: %v", err)
	}
	addr := mock.Addr()
	mock.Close()
	redisCache := cache.NewRedisCache(ctx, addr)
	if _, err := redisCache.GetValue(ctx, "64"); err == nil {
		t.Error("Expected an error from GetValue with unreachable Redis")
	}
	if err := redisCache.SetValue(ctx, "64", "1415926535"); err == nil {
		t.Error("Expected an error from SetValue with unreachable Redis")
	}
}

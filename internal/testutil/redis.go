//go:build integration

// Package testutil provides helpers for integration tests that need
// external services.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/go-redis/redis/v8"
)

// RedisAddr returns the address of the test Redis instance from
// NETFORGE_TEST_REDIS_ADDR, or "" when none is configured.
func RedisAddr() string {
	return os.Getenv("NETFORGE_TEST_REDIS_ADDR")
}

// RequireRedis skips the test when no test Redis is configured and
// otherwise verifies it is reachable.
func RequireRedis(t *testing.T) string {
	t.Helper()

	addr := RedisAddr()
	if addr == "" {
		t.Skip("NETFORGE_TEST_REDIS_ADDR not set, skipping Redis integration test")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("test Redis at %s not reachable: %v", addr, err)
	}
	return addr
}

// FlushPrefix deletes all keys matching prefix* in the test Redis.
func FlushPrefix(t *testing.T, addr, prefix string) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	keys, err := client.Keys(ctx, prefix+"*").Result()
	if err != nil {
		t.Fatalf("listing keys %s*: %v", prefix, err)
	}
	if len(keys) > 0 {
		if err := client.Del(ctx, keys...).Err(); err != nil {
			t.Fatalf("deleting %d keys: %v", len(keys), err)
		}
	}
}

package testsupport

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"

	"teamy/internal/adapters/config"
)

// NewRedisClient creates a redis client for integration tests and removes
// every key under cfg.KeyPrefix when the test ends.
func NewRedisClient(t *testing.T, cfg config.RedisConfig) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}

	t.Cleanup(func() {
		ctx := context.Background()
		iter := client.Scan(ctx, 0, cfg.KeyPrefix+":*", 100).Iterator()
		for iter.Next(ctx) {
			_ = client.Del(ctx, iter.Val()).Err()
		}
		_ = client.Close()
	})

	return client
}

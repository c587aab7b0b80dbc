package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"remindme/internal/config"
)

// Connect builds a Redis client from the environment and verifies it with a
// ping. Callers may treat a failure as non-fatal; every cache consumer works
// without Redis.
func Connect(ctx context.Context) (*redis.Client, error) {
	host, port, password := config.RedisConfig()

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

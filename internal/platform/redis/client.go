// Package redis wraps the go-redis client construction.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// New creates a redis client from a URL and verifies the connection. An empty
// URL returns (nil, nil): redis is optional and callers fall back to
// in-process equivalents.
func New(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

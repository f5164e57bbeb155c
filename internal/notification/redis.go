package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher delivers notification messages over Redis pub/sub.
type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedis creates a Redis client for the notification bus.
func NewRedis(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedisPublisher creates a publisher over the given client.
func NewRedisPublisher(redisClient *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: redisClient}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, message []byte) error {
	if err := p.rdb.Publish(ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("redis publish to %s: %w", channel, err)
	}
	return nil
}

// Ping reports bus connectivity, for health checks.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// LogPublisher is the publisher used when the notification bus is disabled:
// messages are logged and dropped.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, channel string, message []byte) error {
	slog.Info("[Notifier] Bus disabled, dropping message", "channel", channel, "bytes", len(message))
	return nil
}

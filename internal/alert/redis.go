package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher appends alerts to a capped list and announces them on a
// pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	key     string
	channel string
	maxLen  int64
}

// RedisOption configures a RedisPublisher.
type RedisOption func(*RedisPublisher)

// WithRedisKey sets the list key. Default is "drowsiness_alerts".
func WithRedisKey(key string) RedisOption {
	return func(p *RedisPublisher) { p.key = key }
}

// WithRedisChannel sets the pub/sub channel; empty disables publishing.
func WithRedisChannel(ch string) RedisOption {
	return func(p *RedisPublisher) { p.channel = ch }
}

// WithRedisMaxLen caps the list length; 0 keeps everything.
func WithRedisMaxLen(n int64) RedisOption {
	return func(p *RedisPublisher) { p.maxLen = n }
}

// NewRedisPublisher wraps an existing client.
func NewRedisPublisher(client *redis.Client, opts ...RedisOption) *RedisPublisher {
	p := &RedisPublisher{
		client:  client,
		key:     "drowsiness_alerts",
		channel: "drowsiness_alerts",
		maxLen:  1000,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DialRedis connects to addr and pings it.
func DialRedis(ctx context.Context, addr string, opts ...RedisOption) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisPublisher(client, opts...), nil
}

// Name identifies the publisher in logs.
func (p *RedisPublisher) Name() string { return "redis" }

// Publish pushes e newest-first and trims the list in one round-trip.
func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	data, err := e.JSON()
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	pipe := p.client.TxPipeline()
	pipe.LPush(ctx, p.key, data)
	if p.maxLen > 0 {
		pipe.LTrim(ctx, p.key, 0, p.maxLen-1)
	}
	if p.channel != "" {
		pipe.Publish(ctx, p.channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// Recent returns up to n alerts, newest first.
func (p *RedisPublisher) Recent(ctx context.Context, n int64) ([]Event, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := p.client.LRange(ctx, p.key, 0, n-1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis lrange failed: %w", err)
	}
	events := make([]Event, 0, len(raw))
	for _, item := range raw {
		var e Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal alert: %w", err)
		}
		events = append(events, e)
	}
	return events, nil
}

// Close closes the client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

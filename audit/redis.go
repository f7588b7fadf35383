package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel used when none is configured
const DefaultChannel = "arbagent:audit"

// RedisPublisher broadcasts audit records on a Redis pub/sub channel
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

// NewRedisPublisher connects to addr and verifies the connection
func NewRedisPublisher(ctx context.Context, addr, password, channel string) (*RedisPublisher, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return &RedisPublisher{rdb: rdb, channel: channel}, nil
}

// Emit publishes the encoded record
func (p *RedisPublisher) Emit(ctx context.Context, e Event) error {
	rec, err := Encode(e)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: marshal record: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", p.channel, err)
	}
	return nil
}

// Close closes the client
func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}

var _ Log = (*RedisPublisher)(nil)

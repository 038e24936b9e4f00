package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Topics the hub publishes to, relative to the channel prefix
const (
	TopicPublic = "public"
	TopicUsers  = "users"
)

// Publisher fans chat events out to subscribers
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
	Close() error
}

// NopPublisher drops every event. Used when no Redis is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
func (NopPublisher) Close() error                               { return nil }

// RedisPublisher publishes JSON payloads with Redis PUBLISH
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

// NewRedisPublisher connects to redisURL. Channels are named prefix+topic.
func NewRedisPublisher(redisURL, prefix string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisPublisherWithClient(client, prefix), nil
}

// NewRedisPublisherWithClient wraps an existing client
func NewRedisPublisherWithClient(client *redis.Client, prefix string) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix}
}

// Channel returns the Redis channel of a topic
func (p *RedisPublisher) Channel(topic string) string {
	return p.prefix + topic
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}
	if err := p.client.Publish(ctx, p.Channel(topic), data).Err(); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

var (
	_ Publisher = NopPublisher{}
	_ Publisher = (*RedisPublisher)(nil)
)

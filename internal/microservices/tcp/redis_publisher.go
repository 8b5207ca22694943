package tcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisChannel = "hellotcp:messages"

// PublishedMessage is the JSON payload put on the Redis channel
type PublishedMessage struct {
	ConnID     string    `json:"conn_id"`
	RemoteAddr string    `json:"remote_addr"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"received_at"`
}

// RedisPublisher is a Handler that fans decoded messages out over Redis pub/sub.
// Nothing is stored; subscribers that are not listening miss the message.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// constructor for RedisPublisher, accepts "redis://host:port/db" or a bare "host:port"
func NewRedisPublisher(redisURL, channel string) (*RedisPublisher, error) {
	if !strings.Contains(redisURL, "://") {
		redisURL = "redis://" + redisURL
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	rdb := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisPublisher{
		client:  rdb,
		channel: channel,
	}, nil
}

func (p *RedisPublisher) HandleMessage(ctx context.Context, c *Connection, msg string) error {
	payload, err := json.Marshal(PublishedMessage{
		ConnID:     c.ID,
		RemoteAddr: c.RemoteAddr,
		Message:    msg,
		ReceivedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.channel, err)
	}
	return nil
}

func (p *RedisPublisher) Channel() string {
	return p.channel
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel progress events travel on.
const DefaultChannel = "code-compass:progress"

// RedisOptions configures NewRedisClient.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and pings it once.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("notify: connecting to redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}

// RedisBroker is a Broker over Redis pub/sub.
type RedisBroker struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

func NewRedisBroker(client *redis.Client, channel string, logger *slog.Logger) *RedisBroker {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBroker{client: client, channel: channel, logger: logger}
}

func (b *RedisBroker) Publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("notify: encoding envelope: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("notify: publishing to %s: %w", b.channel, err)
	}
	return nil
}

// Subscribe blocks until ctx is done. Malformed messages are logged and
// skipped.
func (b *RedisBroker) Subscribe(ctx context.Context, deliver func(Envelope)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed so no event published
	// after Subscribe returns control is missed.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("notify: subscribing to %s: %w", b.channel, err)
	}
	b.logger.Info("subscribed to progress channel", slog.String("channel", b.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("skipping malformed progress envelope", slog.String("error", err.Error()))
				continue
			}
			deliver(env)
		}
	}
}

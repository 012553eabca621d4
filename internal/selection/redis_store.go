package selection

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares the selection between dashboard replicas. Every Set is
// also published on the key's events channel.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int, key string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return newRedisStore(client, key), nil
}

func newRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = "incident-dashboard:scenario"
	}
	return &RedisStore{client: client, key: key}
}

// Channel is the pub/sub channel selection changes are published on.
func (r *RedisStore) Channel() string {
	return r.key + ":events"
}

func (r *RedisStore) Get(ctx context.Context) (string, error) {
	name, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotSet
	}
	if err != nil {
		return "", fmt.Errorf("failed to read selection: %w", err)
	}
	return name, nil
}

func (r *RedisStore) Set(ctx context.Context, name string) error {
	if err := r.client.Set(ctx, r.key, name, 0).Err(); err != nil {
		return fmt.Errorf("failed to store selection: %w", err)
	}
	if err := r.client.Publish(ctx, r.Channel(), name).Err(); err != nil {
		return fmt.Errorf("failed to publish selection: %w", err)
	}
	return nil
}

// Watch streams scenario names published by any replica until ctx is done.
func (r *RedisStore) Watch(ctx context.Context) (<-chan string, error) {
	sub := r.client.Subscribe(ctx, r.Channel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan string, 8)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				default:
				}
			}
		}
	}()
	return out, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

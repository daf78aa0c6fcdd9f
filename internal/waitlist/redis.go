package waitlist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stolik/internal/config"
	"stolik/internal/models"

	"github.com/redis/go-redis/v9"
)

const waitlistKey = "waitlist:entries"

// RedisWaitlist keeps the queue in a redis list so it survives process
// restarts. Entries are pushed to the tail and popped from the head.
type RedisWaitlist struct {
	client *redis.Client
}

// NewRedisClient builds a redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisWaitlist(client *redis.Client) *RedisWaitlist {
	return &RedisWaitlist{client: client}
}

func (w *RedisWaitlist) Enqueue(ctx context.Context, entry models.WaitlistEntry) error {
	if w.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal waitlist entry: %w", err)
	}
	if err := w.client.RPush(ctx, waitlistKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue waitlist entry: %w", err)
	}
	return nil
}

func (w *RedisWaitlist) PeekHead(ctx context.Context) (models.WaitlistEntry, bool, error) {
	if w.client == nil {
		return models.WaitlistEntry{}, false, fmt.Errorf("redis client is nil")
	}
	val, err := w.client.LIndex(ctx, waitlistKey, 0).Result()
	if err == redis.Nil {
		return models.WaitlistEntry{}, false, nil
	}
	if err != nil {
		return models.WaitlistEntry{}, false, fmt.Errorf("failed to peek waitlist head: %w", err)
	}

	var entry models.WaitlistEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return models.WaitlistEntry{}, false, fmt.Errorf("failed to unmarshal waitlist entry: %w", err)
	}
	return entry, true, nil
}

func (w *RedisWaitlist) DequeueHead(ctx context.Context) error {
	if w.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	err := w.client.LPop(ctx, waitlistKey).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to dequeue waitlist head: %w", err)
	}
	return nil
}

func (w *RedisWaitlist) Len(ctx context.Context) (int, error) {
	if w.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	n, err := w.client.LLen(ctx, waitlistKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get waitlist length: %w", err)
	}
	return int(n), nil
}

func (w *RedisWaitlist) Entries(ctx context.Context) ([]models.WaitlistEntry, error) {
	if w.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	vals, err := w.client.LRange(ctx, waitlistKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list waitlist entries: %w", err)
	}

	entries := make([]models.WaitlistEntry, 0, len(vals))
	for _, val := range vals {
		var entry models.WaitlistEntry
		if err := json.Unmarshal([]byte(val), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal waitlist entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Ping checks the redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Close closes the redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}

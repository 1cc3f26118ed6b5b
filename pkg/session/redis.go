package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "buyza:session:"
	seenKeyPrefix    = "buyza:seen:"
	defaultSeenTTL   = 24 * time.Hour
)

// RedisStore keeps sessions in Redis as JSON values
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing client
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// DialRedis parses a redis:// URL and verifies the connection
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

// Get loads a session
func (r *RedisStore) Get(ctx context.Context, phone string) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+phone).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

// Save writes a session and refreshes its expiry
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	if s == nil || s.Phone == "" {
		return fmt.Errorf("session: phone is required")
	}
	s.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+s.Phone, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Delete removes a session
func (r *RedisStore) Delete(ctx context.Context, phone string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+phone).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// MarkSeen uses SETNX so that concurrent replicas agree on the first delivery
func (r *RedisStore) MarkSeen(ctx context.Context, messageID string) (bool, error) {
	ttl := r.ttl
	if ttl <= 0 {
		ttl = defaultSeenTTL
	}
	ok, err := r.client.SetNX(ctx, seenKeyPrefix+messageID, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis mark seen: %w", err)
	}
	return ok, nil
}

// HealthCheck pings Redis
func (r *RedisStore) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

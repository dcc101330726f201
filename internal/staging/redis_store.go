package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 24 * time.Hour

// RedisStore implements Store with one Redis hash per staged key
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-backed staging store
func NewRedisStore(redisURL, prefix string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, prefix, ttl), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get reads one field of a staged key
func (s *RedisStore) Get(ctx context.Context, scope Scope, key, field string, dest any) (bool, error) {
	if err := scope.validate(); err != nil {
		return false, err
	}

	raw, err := s.client.HGet(ctx, scope.key(s.prefix, key), field).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read staged %s.%s: %w", key, field, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode staged %s.%s: %w", key, field, err)
	}
	return true, nil
}

// Set writes fields and refreshes the key expiry
func (s *RedisStore) Set(ctx context.Context, scope Scope, key string, fields map[string]any) error {
	if err := scope.validate(); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	values := make(map[string]any, len(fields))
	for field, value := range fields {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode staged %s.%s: %w", key, field, err)
		}
		values[field] = string(encoded)
	}

	redisKey := scope.key(s.prefix, key)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, redisKey, values)
		pipe.Expire(ctx, redisKey, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write staged %s: %w", key, err)
	}
	return nil
}

// Clear deletes fields of a staged key, or the key itself
func (s *RedisStore) Clear(ctx context.Context, scope Scope, key string, fields ...string) error {
	if err := scope.validate(); err != nil {
		return err
	}

	redisKey := scope.key(s.prefix, key)
	var err error
	if len(fields) == 0 {
		err = s.client.Del(ctx, redisKey).Err()
	} else {
		err = s.client.HDel(ctx, redisKey, fields...).Err()
	}
	if err != nil {
		return fmt.Errorf("clear staged %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// RedisRatesStore caches a provider's full rate table as one JSON blob.
type RedisRatesStore struct {
	client *redis.Client
}

func NewRedisRatesStore(client *redis.Client) *RedisRatesStore {
	return &RedisRatesStore{client: client}
}

func (s *RedisRatesStore) Get(ctx context.Context, provider string) (map[string]float64, bool, error) {
	raw, err := s.client.Get(ctx, "commerce:rates:"+provider).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var rates map[string]float64
	if err := json.Unmarshal(raw, &rates); err != nil {
		return nil, false, err
	}
	return rates, true, nil
}

func (s *RedisRatesStore) Put(ctx context.Context, provider string, rates map[string]float64, ttl time.Duration) error {
	raw, err := json.Marshal(rates)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, "commerce:rates:"+provider, raw, ttl).Err()
}

// RedisAggregateStore holds computed read-model floats (lowest price,
// average rating) under caller-supplied keys.
type RedisAggregateStore struct {
	client *redis.Client
}

func NewRedisAggregateStore(client *redis.Client) *RedisAggregateStore {
	return &RedisAggregateStore{client: client}
}

func (s *RedisAggregateStore) GetFloat(ctx context.Context, key string) (float64, bool, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	value, convErr := strconv.ParseFloat(raw, 64)
	if convErr != nil {
		return 0, false, fmt.Errorf("parse cached float at %s: %w", key, convErr)
	}
	return value, true, nil
}

func (s *RedisAggregateStore) PutFloat(ctx context.Context, key string, value float64, ttl time.Duration) error {
	return s.client.Set(ctx, key, strconv.FormatFloat(value, 'f', -1, 64), ttl).Err()
}

// RedisRateLimiter is a fixed-window counter. The first hit in a window
// creates the key with the window TTL; hits past the limit are rejected.
type RedisRateLimiter struct {
	client *redis.Client
}

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := "commerce:ratelimit:" + key
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(limit), nil
}

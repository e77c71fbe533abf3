package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "mace:session:"

// RedisStore keeps the slots in Redis so several machines can share a
// signed-in profile.
type RedisStore struct {
	client  *redis.Client
	profile string
}

func NewRedisStore(client *redis.Client, profile string) *RedisStore {
	if profile == "" {
		profile = "default"
	}
	return &RedisStore{client: client, profile: profile}
}

// NewRedisClient parses url without contacting the server.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// DialRedis parses url and pings the server.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	client, err := NewRedisClient(url)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (s *RedisStore) key(slot string) string {
	return redisKeyPrefix + s.profile + ":" + slot
}

func (s *RedisStore) Load(ctx context.Context) (Credentials, error) {
	values, err := s.client.MGet(ctx, s.key(slotToken), s.key(slotRefreshToken)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Credentials{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var creds Credentials
	if len(values) > 0 {
		creds.Token, _ = values[0].(string)
	}
	if len(values) > 1 {
		creds.RefreshToken, _ = values[1].(string)
	}
	return creds, nil
}

func (s *RedisStore) Save(ctx context.Context, creds Credentials) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(slotToken), creds.Token, 0)
		if creds.RefreshToken != "" {
			pipe.Set(ctx, s.key(slotRefreshToken), creds.RefreshToken, 0)
		} else {
			pipe.Del(ctx, s.key(slotRefreshToken))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key(slotToken), s.key(slotRefreshToken)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

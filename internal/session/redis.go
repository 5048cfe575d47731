package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps session cookies in Redis so that sessions survive process
// restarts and are shared between replicas. Keys expire with their TTL; the
// user set is the index the background sync runner enumerates.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

var _ Store = (*RedisStore)(nil)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "vintedsync:session"
	}
	return &RedisStore{client: client, keyPrefix: prefix}, nil
}

func (s *RedisStore) cookieKey(userID string) string {
	return s.keyPrefix + ":cookie:" + userID
}

func (s *RedisStore) usersKey() string {
	return s.keyPrefix + ":users"
}

func (s *RedisStore) Get(ctx context.Context, userID string) (string, error) {
	cookie, err := s.client.Get(ctx, s.cookieKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		// Drop the stale index entry so Users stays honest.
		_ = s.client.SRem(ctx, s.usersKey(), userID).Err()
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get session: %w", err)
	}
	return cookie, nil
}

func (s *RedisStore) Set(ctx context.Context, userID, cookie string, ttl time.Duration) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.cookieKey(userID), cookie, ttl)
	pipe.SAdd(ctx, s.usersKey(), userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.cookieKey(userID))
	pipe.SRem(ctx, s.usersKey(), userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) Users(ctx context.Context) ([]string, error) {
	users, err := s.client.SMembers(ctx, s.usersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list session users: %w", err)
	}
	return users, nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

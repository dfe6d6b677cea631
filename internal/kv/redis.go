package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// release deletes the lock only when it still carries the caller's token.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(redisAddress string, redisUsername string, redisPassword string) *RedisStore {
	return &RedisStore{rdb: redis.NewClient(&redis.Options{
		Addr:     redisAddress,
		Username: redisUsername,
		Password: redisPassword,
		DB:       0,
	})}
}

// Ping checks the server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) DayKey(ctx context.Context) (string, bool, error) {
	v, err := s.rdb.Get(ctx, DayKeyName).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", DayKeyName, err)
	}
	return v, true, nil
}

func (s *RedisStore) SetDayKey(ctx context.Context, key string) error {
	if err := s.rdb.Set(ctx, DayKeyName, key, 0).Err(); err != nil {
		log.Error().Err(err).Str("key", DayKeyName).Msg("failed to add key to redis")
		return fmt.Errorf("failed to write %s: %w", DayKeyName, err)
	}
	return nil
}

func (s *RedisStore) AcquireLock(ctx context.Context, owner string, ttl time.Duration) error {
	ok, err := s.rdb.SetNX(ctx, LockName, owner, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire %s: %w", LockName, err)
	}
	if !ok {
		return ErrLockContention
	}
	return nil
}

func (s *RedisStore) ReleaseLock(ctx context.Context, owner string) error {
	if err := release.Run(ctx, s.rdb, []string{LockName}, owner).Err(); err != nil {
		return fmt.Errorf("failed to release %s: %w", LockName, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultRedisKeyPrefix = "gateway:ratelimit:"

// RedisStore shares buckets between gateway instances. The window is the
// key's TTL, so Redis drops expired buckets on its own.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrStoreUnavailable, addr, err)
	}
	return client, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (Bucket, bool, error) {
	k := s.prefix + key

	pipe := s.client.Pipeline()
	getCmd := pipe.Get(ctx, k)
	ttlCmd := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Bucket{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	count, err := getCmd.Int64()
	if errors.Is(err, redis.Nil) {
		return Bucket{}, false, nil
	}
	if err != nil {
		return Bucket{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return Bucket{Count: count, ResetAt: s.resetAt(ttlCmd.Val())}, true, nil
}

func (s *RedisStore) Incr(ctx context.Context, key string) (Bucket, error) {
	k := s.prefix + key

	var incrCmd *redis.IntCmd
	var ttlCmd *redis.DurationCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incrCmd = pipe.Incr(ctx, k)
		ttlCmd = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return Bucket{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return Bucket{Count: incrCmd.Val(), ResetAt: s.resetAt(ttlCmd.Val())}, nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.PExpire(ctx, s.prefix+key, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// resetAt converts a PTTL reply. Negative replies mean the key has no
// expiry (or is gone), which maps to a window that was never started.
func (s *RedisStore) resetAt(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

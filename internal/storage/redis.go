package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore handles the per-pipeline run lock. The orchestrator already
// serializes scheduled runs; the lock guards against an operator invoking
// a pipeline by hand while a run is in flight.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string) *RedisStore {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisStore{client: rdb}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// AcquireRunLock takes the lock for a source, returning false when another
// run already holds it. The TTL bounds how long a crashed run can block
// the next one.
func (s *RedisStore) AcquireRunLock(ctx context.Context, source string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("runlock:%s", source)
	return s.client.SetNX(ctx, key, "1", ttl).Result()
}

// ReleaseRunLock drops the lock at the end of a run.
func (s *RedisStore) ReleaseRunLock(ctx context.Context, source string) error {
	key := fmt.Sprintf("runlock:%s", source)
	return s.client.Del(ctx, key).Err()
}

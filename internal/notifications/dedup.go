package notifications

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupPrefix = "notif:sent:"

// Deduper remembers which bookings were already mailed so that redelivered
// events do not produce a second confirmation.
type Deduper interface {
	// Claim reports true the first time key is seen.
	Claim(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

type RedisDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

func (d *RedisDeduper) Claim(ctx context.Context, key string) (bool, error) {
	return d.rdb.SetNX(ctx, dedupPrefix+key, 1, d.ttl).Result()
}

func (d *RedisDeduper) Forget(ctx context.Context, key string) error {
	return d.rdb.Del(ctx, dedupPrefix+key).Err()
}

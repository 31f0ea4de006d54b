// Package cache holds the Redis-backed read caches.  Every cache here is
// advisory: a nil client, a disabled config or any Redis error turns the
// operation into a miss or a no-op, and callers fall back to the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cafe-ordering/internal/logger"
)

// getJSON loads key into dst.  It reports false on a miss, a Redis error
// or a payload that no longer decodes.
func getJSON(ctx context.Context, rdb *redis.Client, key string, dst any) bool {
	bs, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.From(ctx).Debug("cache_get_failed", slog.String("key", key), slog.Any("err", err))
		}
		return false
	}
	if err := json.Unmarshal(bs, dst); err != nil {
		logger.From(ctx).Warn("cache_decode_failed", slog.String("key", key), slog.Any("err", err))
		_ = rdb.Del(ctx, key).Err()
		return false
	}
	return true
}

func setJSON(ctx context.Context, rdb *redis.Client, key string, v any, ttl time.Duration) {
	bs, err := json.Marshal(v)
	if err != nil {
		logger.From(ctx).Warn("cache_encode_failed", slog.String("key", key), slog.Any("err", err))
		return
	}
	if err := rdb.Set(ctx, key, bs, ttl).Err(); err != nil {
		logger.From(ctx).Debug("cache_set_failed", slog.String("key", key), slog.Any("err", err))
	}
}

func del(ctx context.Context, rdb *redis.Client, keys ...string) {
	if err := rdb.Del(ctx, keys...).Err(); err != nil {
		logger.From(ctx).Warn("cache_delete_failed", slog.Any("keys", keys), slog.Any("err", err))
	}
}

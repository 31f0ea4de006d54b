package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cafe-ordering/internal/config"
	"github.com/iliyamo/cafe-ordering/internal/metrics"
	"github.com/iliyamo/cafe-ordering/internal/model"
)

// SessionCache caches user profiles by user id.  It is never the source of
// truth: writes to a user go to the store first and then Invalidate.
type SessionCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	rec    metrics.Recorder
}

// NewSessionCache returns a cache over rdb.  A nil rdb or a disabled config
// yields a cache on which every call is a no-op.
func NewSessionCache(rdb *redis.Client, cfg config.CacheConfig, rec metrics.Recorder) *SessionCache {
	if !cfg.Enabled {
		rdb = nil
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &SessionCache{rdb: rdb, prefix: cfg.Prefix, ttl: cfg.SessionTTL, rec: rec}
}

func (c *SessionCache) key(userID uint64) string {
	return c.prefix + ":session:" + strconv.FormatUint(userID, 10)
}

// Get returns the cached profile, if any.
func (c *SessionCache) Get(ctx context.Context, userID uint64) (*model.UserProfile, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	var p model.UserProfile
	ok := getJSON(ctx, c.rdb, c.key(userID), &p)
	c.rec.RecordCacheLookup("session", ok)
	if !ok {
		return nil, false
	}
	return &p, true
}

// Set stores p for ttl.  A non-positive ttl uses the configured default.
func (c *SessionCache) Set(ctx context.Context, userID uint64, p model.UserProfile, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	setJSON(ctx, c.rdb, c.key(userID), p, ttl)
}

// Invalidate drops the cached profile.
func (c *SessionCache) Invalidate(ctx context.Context, userID uint64) {
	if c == nil || c.rdb == nil {
		return
	}
	del(ctx, c.rdb, c.key(userID))
}

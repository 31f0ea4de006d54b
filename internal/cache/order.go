package cache

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cafe-ordering/internal/config"
	"github.com/iliyamo/cafe-ordering/internal/logger"
	"github.com/iliyamo/cafe-ordering/internal/metrics"
	"github.com/iliyamo/cafe-ordering/internal/model"
)

// OrderCache caches single orders and listing pages for a short TTL.
//
// Listing keys embed a generation number.  InvalidateLists bumps the
// generation so every cached page becomes unreachable at once without
// scanning keys; stale pages then expire on their own.
type OrderCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	rec    metrics.Recorder
}

// NewOrderCache returns a cache over rdb.  A nil rdb or a disabled config
// yields a cache on which every call is a no-op.
func NewOrderCache(rdb *redis.Client, cfg config.CacheConfig, rec metrics.Recorder) *OrderCache {
	if !cfg.Enabled {
		rdb = nil
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &OrderCache{rdb: rdb, prefix: cfg.Prefix, ttl: cfg.OrderTTL, rec: rec}
}

func (c *OrderCache) orderKey(id uint64) string {
	return c.prefix + ":order:" + strconv.FormatUint(id, 10)
}

func (c *OrderCache) genKey() string { return c.prefix + ":orders:gen" }

// listKey hashes the scope and the normalized filter so equal queries
// share a key regardless of how they were spelled.
func (c *OrderCache) listKey(gen int64, scope string, f model.OrderFilter) (string, error) {
	bs, err := json.Marshal(struct {
		Scope  string            `json:"s"`
		Filter model.OrderFilter `json:"f"`
	}{scope, f.Normalize()})
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(bs)
	return fmt.Sprintf("%s:orders:list:%d:%x", c.prefix, gen, sum[:]), nil
}

func (c *OrderCache) generation(ctx context.Context) (int64, bool) {
	gen, err := c.rdb.Get(ctx, c.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		logger.From(ctx).Debug("cache_generation_failed", slog.Any("err", err))
		return 0, false
	}
	return gen, true
}

// GetOrder returns the cached order, if any.
func (c *OrderCache) GetOrder(ctx context.Context, id uint64) (*model.Order, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	var o model.Order
	ok := getJSON(ctx, c.rdb, c.orderKey(id), &o)
	c.rec.RecordCacheLookup("order", ok)
	if !ok {
		return nil, false
	}
	return &o, true
}

// SetOrder caches o.
func (c *OrderCache) SetOrder(ctx context.Context, o *model.Order) {
	if c == nil || c.rdb == nil || o == nil {
		return
	}
	setJSON(ctx, c.rdb, c.orderKey(o.ID), o, c.ttl)
}

// InvalidateOrder drops the cached order.
func (c *OrderCache) InvalidateOrder(ctx context.Context, id uint64) {
	if c == nil || c.rdb == nil {
		return
	}
	del(ctx, c.rdb, c.orderKey(id))
}

// noGeneration is returned by GetList when the generation could not be
// read; SetList ignores it.
const noGeneration int64 = -1

// GetList returns a cached listing page for scope and f, along with the
// generation it looked under.  On a miss the caller passes that generation
// back to SetList.
func (c *OrderCache) GetList(ctx context.Context, scope string, f model.OrderFilter) (*model.OrderPage, int64, bool) {
	if c == nil || c.rdb == nil {
		return nil, noGeneration, false
	}
	gen, ok := c.generation(ctx)
	if !ok {
		return nil, noGeneration, false
	}
	key, err := c.listKey(gen, scope, f)
	if err != nil {
		return nil, noGeneration, false
	}
	var p model.OrderPage
	hit := getJSON(ctx, c.rdb, key, &p)
	c.rec.RecordCacheLookup("order_list", hit)
	if !hit {
		return nil, gen, false
	}
	return &p, gen, true
}

// SetList caches a listing page under gen, the generation GetList reported
// before the page was read.  If InvalidateLists ran in between, the page
// lands under a retired generation and is never served.
func (c *OrderCache) SetList(ctx context.Context, gen int64, scope string, f model.OrderFilter, p *model.OrderPage) {
	if c == nil || c.rdb == nil || p == nil || gen < 0 {
		return
	}
	key, err := c.listKey(gen, scope, f)
	if err != nil {
		return
	}
	setJSON(ctx, c.rdb, key, p, c.ttl)
}

// InvalidateLists makes every cached listing page unreachable.
func (c *OrderCache) InvalidateLists(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Incr(ctx, c.genKey()).Err(); err != nil {
		logger.From(ctx).Warn("cache_generation_bump_failed", slog.Any("err", err))
	}
}

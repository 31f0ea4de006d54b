package config

import "time"

// CacheConfig defines settings for the Redis-backed session and order
// caches.  When Enabled is false or no Redis client is configured, both
// caches become no-ops and every read goes to the database.  Prefix
// namespaces all keys so several deployments can share one Redis.
type CacheConfig struct {
	Enabled    bool
	Prefix     string
	SessionTTL time.Duration
	OrderTTL   time.Duration
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	c := CacheConfig{
		Enabled:    envBool("CACHE_ENABLED", true),
		Prefix:     envStr("CACHE_PREFIX", "cafe"),
		SessionTTL: envDur("SESSION_CACHE_TTL", 15*time.Minute),
		OrderTTL:   envDur("ORDER_CACHE_TTL", 30*time.Second),
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 15 * time.Minute
	}
	if c.OrderTTL <= 0 {
		c.OrderTTL = 30 * time.Second
	}
	return c
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_USER", "cafe")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_NAME", "cafe")
	t.Setenv("JWT_SECRET", "unit-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg := Load()

	require.Equal(t, "local", cfg.Env)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "3306", cfg.DBPort)
	require.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	require.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL)
	require.Equal(t, "unit-secret", cfg.Auth.RefreshSecret)
	require.Equal(t, "cafe-ordering", cfg.Auth.Issuer)
	require.Equal(t, "cafe-ordering-api", cfg.Auth.Audience)
	require.Equal(t, uint32(64*1024), cfg.Hash.MemoryKiB)
	require.Equal(t, uint32(3), cfg.Hash.Time)
	require.Equal(t, uint8(2), cfg.Hash.Threads)
	require.Equal(t, 3*time.Second, cfg.CatalogTimeout)
	require.False(t, cfg.Events.Enabled)
	require.Equal(t, "order.events", cfg.Events.Queue)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "5")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "1")
	t.Setenv("JWT_REFRESH_SECRET", "other")
	t.Setenv("SESSION_CACHE_TTL", "1m")
	t.Setenv("EVENTS_ENABLED", "yes")
	t.Setenv("RABBITMQ_URL", "amqp://u:p@broker:5672/")

	cfg := Load()

	require.Equal(t, 5*time.Minute, cfg.Auth.AccessTTL)
	require.Equal(t, 24*time.Hour, cfg.Auth.RefreshTTL)
	require.Equal(t, "other", cfg.Auth.RefreshSecret)
	require.Equal(t, time.Minute, cfg.Cache.SessionTTL)
	require.True(t, cfg.Events.Enabled)
	require.Equal(t, "amqp://u:p@broker:5672/", cfg.Events.URL)
}

func TestLoadHashConfig_Floors(t *testing.T) {
	t.Setenv("ARGON2_MEMORY_KIB", "16")
	t.Setenv("ARGON2_TIME", "0")
	t.Setenv("ARGON2_THREADS", "0")

	h := LoadHashConfig()

	require.Equal(t, uint32(8*1024), h.MemoryKiB)
	require.Equal(t, uint32(1), h.Time)
	require.Equal(t, uint8(1), h.Threads)
}

func TestLoadHashConfig_OutOfRangeFallsBackToDefault(t *testing.T) {
	cases := map[string]struct {
		memory, time, threads string
	}{
		"negative":         {"-1", "-3", "-2"},
		"beyond the limit": {"8589934592", "1000", "300"},
		"not a number":     {"lots", "x", "many"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("ARGON2_MEMORY_KIB", c.memory)
			t.Setenv("ARGON2_TIME", c.time)
			t.Setenv("ARGON2_THREADS", c.threads)

			h := LoadHashConfig()

			require.Equal(t, uint32(64*1024), h.MemoryKiB)
			require.Equal(t, uint32(3), h.Time)
			require.Equal(t, uint8(2), h.Threads)
		})
	}
}

func TestLoadHashConfig_UpperBoundsAccepted(t *testing.T) {
	t.Setenv("ARGON2_MEMORY_KIB", "4194304")
	t.Setenv("ARGON2_TIME", "64")
	t.Setenv("ARGON2_THREADS", "255")

	h := LoadHashConfig()

	require.Equal(t, uint32(4*1024*1024), h.MemoryKiB)
	require.Equal(t, uint32(64), h.Time)
	require.Equal(t, uint8(255), h.Threads)
}

func TestEnvBool_UnknownFallsBackToDefault(t *testing.T) {
	t.Setenv("SOME_FLAG", "maybe")
	require.True(t, envBool("SOME_FLAG", true))
	require.False(t, envBool("SOME_FLAG", false))
}

func TestRedisOptions_HostPortWinOverAddr(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("REDIS_DB", "2")

	opts := RedisOptions()

	require.Equal(t, "redis:6379", opts.Addr)
	require.Equal(t, 2, opts.DB)
	require.Nil(t, opts.TLSConfig)
}

func TestConfig_Location(t *testing.T) {
	require.Equal(t, time.UTC, Config{Timezone: "Mars/Olympus"}.Location())
	require.Equal(t, "UTC", Config{Timezone: "UTC"}.Location().String())
}

package config

import (
	"os"
	"strconv"
	"time"
)

// RateLimitConfig configures the Redis token bucket placed in front of the
// API.  Booking creation gets its own, tighter bucket (CreateCapacity) since
// every call takes the per-listing lock.
//
// The global bucket runs before authentication, so it can only key on ip
// and route; a user part would always read "anon" there.  The create bucket
// (ForCreate) runs after JWTAuth and keys on the caller.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	CreateCapacity int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		CreateCapacity: envInt("RATE_LIMIT_CREATE_CAPACITY", 10),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	return def.normalized()
}

// normalized clamps values so the Lua script never sees a zero interval or
// a TTL shorter than a few refills.
func (c RateLimitConfig) normalized() RateLimitConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.CreateCapacity < 1 {
		c.CreateCapacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}

// WithCapacity returns a copy of c using capacity and a prefix suffix so the
// buckets do not share keys.
func (c RateLimitConfig) WithCapacity(capacity int, suffix string) RateLimitConfig {
	c.Capacity = capacity
	c.Prefix = c.Prefix + ":" + suffix
	return c.normalized()
}

// ForCreate is the per-caller bucket for booking creation.
func (c RateLimitConfig) ForCreate() RateLimitConfig {
	create := c.WithCapacity(c.CreateCapacity, "create")
	create.KeyStrategy = "user"
	return create
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool { return envBoolFrom(os.Getenv(k), d) }

func envBoolFrom(v string, d bool) bool {
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}

package middleware

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/YAnkir9/SweetShop-TDD/internal/config"
	"github.com/YAnkir9/SweetShop-TDD/internal/obs"
)

// ErrRateLimited is returned when the caller's bucket is empty.
var ErrRateLimited = errors.New("rate limit exceeded")

// NewTokenBucket limits requests per key with a token bucket kept in Redis.
// The refill and take happen in one Lua script so concurrent instances share
// the bucket.  Redis failures let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	// KEYS[1] bucket; ARGV now_ms, capacity, refill, interval_ms, ttl_ms.
	// Returns {allowed, remaining, retry_after_ms}.
	limiterScript := redis.NewScript(`
		local now = tonumber(ARGV[1])
		local cap = tonumber(ARGV[2])
		local refill = tonumber(ARGV[3])
		local interval = tonumber(ARGV[4])
		local ttl = tonumber(ARGV[5])

		local b = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
		local tokens = tonumber(b[1]) or cap
		local ts = tonumber(b[2]) or now

		local steps = math.floor(math.max(0, now - ts) / interval)
		if steps > 0 then
			tokens = math.min(cap, tokens + steps * refill)
			ts = ts + steps * interval
		end

		local retry = 0
		local ok = 0
		if tokens >= 1 then
			ok = 1
			tokens = tokens - 1
		else
			retry = math.max(0, interval - (now - ts))
		end

		redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', ts)
		redis.call('PEXPIRE', KEYS[1], ttl)
		return { ok, tokens, retry }
	`)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			now := time.Now()

			args := []interface{}{
				now.UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				cfg.TTL.Milliseconds(),
			}

			ctx := c.Request().Context()
			vals, err := limiterScript.Run(ctx, rdb, []string{key}, args...).Result()
			if err != nil {
				obs.Logger.Warn("ratelimit: redis error", "key", key, "error", err)
				return next(c)
			}

			res, ok := parseBucket(vals)
			if !ok {
				obs.Logger.Warn("ratelimit: unexpected script result", "key", key, "result", fmt.Sprintf("%#v", vals))
				return next(c)
			}
			allowed, remaining, retryMs := res.allowed, res.remaining, res.retryMs

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if !allowed {
				secs := int(math.Ceil(float64(retryMs) / 1000.0))
				if secs < 0 {
					secs = 0
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				obs.Logger.Debug("ratelimit: blocked", "key", key, "retry_ms", retryMs)
				return ErrRateLimited
			}
			return next(c)
		}
	}
}

type bucketResult struct {
	allowed   bool
	remaining int64
	retryMs   int64
}

// parseBucket reads the {allowed, remaining, retry_ms} reply of the script.
// go-redis returns Lua integers as int64.
func parseBucket(v any) (bucketResult, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 3 {
		return bucketResult{}, false
	}
	var n [3]int64
	for i, x := range arr {
		switch t := x.(type) {
		case int64:
			n[i] = t
		case string:
			p, err := strconv.ParseInt(t, 10, 64)
			if err != nil {
				return bucketResult{}, false
			}
			n[i] = p
		default:
			return bucketResult{}, false
		}
	}
	return bucketResult{allowed: n[0] == 1, remaining: n[1], retryMs: n[2]}, true
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := []string{cfg.Prefix}
	strategy := strings.ToLower(cfg.KeyStrategy)
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := userID(c)
	route := c.Request().Method + " " + c.Path()

	switch strategy {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		// anonymous callers share nothing; fall back to their address
		if uid == "guest" {
			parts = append(parts, "ip", ip)
		} else {
			parts = append(parts, "user", uid)
		}
	default:
		parts = append(parts, "ip", ip, "user", uid, "route", route)
	}
	return strings.Join(parts, ":")
}

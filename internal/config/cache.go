package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the catalog response cache.  Only GET
// requests whose path starts with one of Paths are cached; catalog writes
// purge the same prefix in Redis.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	Paths        []string
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseList(envStr("CACHE_METHODS", "GET"), strings.ToUpper),
		Paths:        splitList(envStr("CACHE_PATHS", "/api/sweets,/api/categories")),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseList(s string, norm func(string) string) map[string]bool {
	m := map[string]bool{}
	for _, p := range splitList(s) {
		m[norm(p)] = true
	}
	return m
}

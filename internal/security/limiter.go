// Package security rate-limits the reload endpoint's upgrade handshake.
// A buggy client script can retry in a tight loop; the limiter keeps a
// reconnect storm from one address away from the rest of the dev server.
package security

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// LimiterConfig configures the per-address token buckets.
type LimiterConfig struct {
	Enabled           bool          `json:"enabled" yaml:"enabled"`
	RequestsPerSecond float64       `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int           `json:"burst" yaml:"burst"`
	TTL               time.Duration `json:"ttl" yaml:"ttl"`
}

func DefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{
		Enabled:           false,
		RequestsPerSecond: 2,
		Burst:             12, // one full client retry cycle plus headroom
		TTL:               5 * time.Minute,
	}
}

// UpgradeLimiter keeps one token bucket per client address. Buckets for
// idle addresses expire with the cache TTL.
type UpgradeLimiter struct {
	config   LimiterConfig
	limiters *cache.Cache
}

func NewUpgradeLimiter(config LimiterConfig) *UpgradeLimiter {
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	return &UpgradeLimiter{
		config:   config,
		limiters: cache.New(config.TTL, config.TTL*2),
	}
}

// Allow reports whether this handshake attempt is within the client's
// budget. Always true when the limiter is disabled.
func (l *UpgradeLimiter) Allow(r *http.Request) bool {
	if !l.config.Enabled {
		return true
	}

	key := clientIP(r)

	var limiter *rate.Limiter
	if item, found := l.limiters.Get(key); found {
		limiter = item.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.Burst)
		l.limiters.Set(key, limiter, cache.DefaultExpiration)
	}

	return limiter.Allow()
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

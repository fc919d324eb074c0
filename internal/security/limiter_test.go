package security

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisabledLimiterAlwaysAllows(t *testing.T) {
	l := NewUpgradeLimiter(LimiterConfig{Enabled: false})

	r := httptest.NewRequest("GET", "/_snapfire/ws", nil)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow(r))
	}
}

func TestLimiterExhaustsBurst(t *testing.T) {
	l := NewUpgradeLimiter(LimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001, // effectively no refill during the test
		Burst:             3,
		TTL:               time.Minute,
	})

	r := httptest.NewRequest("GET", "/_snapfire/ws", nil)
	r.RemoteAddr = "10.0.0.1:1234"

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(r), "attempt %d should be within burst", i)
	}
	assert.False(t, l.Allow(r), "burst exhausted")
}

func TestLimiterIsolatesClients(t *testing.T) {
	l := NewUpgradeLimiter(LimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		Burst:             1,
		TTL:               time.Minute,
	})

	a := httptest.NewRequest("GET", "/_snapfire/ws", nil)
	a.RemoteAddr = "10.0.0.1:1234"
	b := httptest.NewRequest("GET", "/_snapfire/ws", nil)
	b.RemoteAddr = "10.0.0.2:1234"

	assert.True(t, l.Allow(a))
	assert.False(t, l.Allow(a))
	assert.True(t, l.Allow(b), "a different address has its own bucket")
}

func TestLimiterHonorsForwardedFor(t *testing.T) {
	l := NewUpgradeLimiter(LimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		Burst:             1,
		TTL:               time.Minute,
	})

	r := httptest.NewRequest("GET", "/_snapfire/ws", nil)
	r.RemoteAddr = "127.0.0.1:9999"
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 127.0.0.1")

	assert.True(t, l.Allow(r))
	assert.False(t, l.Allow(r))

	direct := httptest.NewRequest("GET", "/_snapfire/ws", nil)
	direct.RemoteAddr = "127.0.0.1:9999"
	assert.True(t, l.Allow(direct), "the proxy address is not the client")
}

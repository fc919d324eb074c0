package config

import (
	"time"

	"github.com/snapfire/snapfire/internal/observability"
	"github.com/snapfire/snapfire/internal/security"
)

// DefaultEndpoint is the websocket path used when none is configured.
const DefaultEndpoint = "/_snapfire/ws"

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Templates: TemplatesConfig{
			Glob: "templates/*.html",
		},
		Reload: ReloadConfig{
			Enabled:      true,
			Endpoint:     DefaultEndpoint,
			InjectScript: true,
			Debounce:     250 * time.Millisecond,
		},
		RateLimit:     security.DefaultLimiterConfig(),
		Observability: observability.DefaultConfig(),
	}
}

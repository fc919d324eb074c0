package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Validate rejects configurations that would fail later in a less obvious
// way. Build-time errors must surface here, never as silent defaults.
func (c *Config) Validate() error {
	if c.Templates.Glob == "" {
		return fmt.Errorf("templates.glob must not be empty")
	}

	if c.Server.Port != "" {
		port, err := strconv.Atoi(c.Server.Port)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("server.port %q is not a valid port", c.Server.Port)
		}
	}

	if c.Reload.Enabled {
		if !strings.HasPrefix(c.Reload.Endpoint, "/") {
			return fmt.Errorf("reload.endpoint %q must start with /", c.Reload.Endpoint)
		}
		if c.Reload.Debounce < 0 {
			return fmt.Errorf("reload.debounce must not be negative")
		}
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limit.requests_per_second must be positive")
		}
		if c.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate_limit.burst must be positive")
		}
	}

	return nil
}

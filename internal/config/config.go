// Package config holds the file/env/flag configuration surface consumed by
// the demo server. Library embedders configure snapfire through the
// builder instead.
package config

import (
	"time"

	"github.com/snapfire/snapfire/internal/observability"
	"github.com/snapfire/snapfire/internal/security"
)

type Config struct {
	Server        ServerConfig         `json:"server" yaml:"server"`
	Templates     TemplatesConfig      `json:"templates" yaml:"templates"`
	Reload        ReloadConfig         `json:"reload" yaml:"reload"`
	RateLimit     security.LimiterConfig `json:"rate_limit" yaml:"rate_limit"`
	Observability observability.Config `json:"observability" yaml:"observability"`
}

type ServerConfig struct {
	Host            string        `json:"host" yaml:"host"`
	Port            string        `json:"port" yaml:"port"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type TemplatesConfig struct {
	// Glob locates the template files, e.g. "templates/*.html".
	Glob string `json:"glob" yaml:"glob"`
	// Globals are available to every template.
	Globals map[string]any `json:"globals" yaml:"globals"`
}

type ReloadConfig struct {
	// Enabled selects development mode; when false the whole live-reload
	// subsystem is absent.
	Enabled bool `json:"enabled" yaml:"enabled"`
	// StaticDirs are extra directories watched for asset changes.
	StaticDirs []string `json:"static_dirs" yaml:"static_dirs"`
	// Endpoint is the websocket path the client script connects to.
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	// InjectScript controls automatic script injection into HTML responses.
	InjectScript bool `json:"inject_script" yaml:"inject_script"`
	// Debounce is the window during which file events merge into one signal.
	Debounce time.Duration `json:"debounce" yaml:"debounce"`
}

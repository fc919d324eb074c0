package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CLIFlags carries flag values from the binary without importing its flag
// package here. Nil fields were not set on the command line.
type CLIFlags struct {
	Host         *string
	Port         *string
	TemplateGlob *string
	StaticDirs   *[]string
	Endpoint     *string
	InjectScript *bool
	Debounce     *time.Duration
	DevMode      *bool
}

// Load builds the effective configuration with precedence:
// CLI flags > environment variables > config file > defaults.
func Load(configFile string, cliFlags *CLIFlags) (*Config, error) {
	cfg := DefaultConfig()

	if configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if cliFlags != nil {
		overrideWithCLI(cfg, cliFlags)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config file format: %s", filepath.Ext(path))
	}
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("SNAPFIRE_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SNAPFIRE_PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("SNAPFIRE_TEMPLATE_GLOB"); v != "" {
		cfg.Templates.Glob = v
	}
	if v := os.Getenv("SNAPFIRE_STATIC_DIRS"); v != "" {
		cfg.Reload.StaticDirs = strings.Split(v, ",")
	}
	if v := os.Getenv("SNAPFIRE_RELOAD_ENDPOINT"); v != "" {
		cfg.Reload.Endpoint = v
	}
	if v := os.Getenv("SNAPFIRE_RELOAD_INJECT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Reload.InjectScript = b
		}
	}
	if v := os.Getenv("SNAPFIRE_RELOAD_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Reload.Debounce = d
		}
	}
	if v := os.Getenv("SNAPFIRE_DEV"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Reload.Enabled = b
		}
	}
	if v := os.Getenv("SNAPFIRE_LOG_LEVEL"); v != "" {
		cfg.Observability.Logging.Level = v
	}
}

func overrideWithCLI(cfg *Config, flags *CLIFlags) {
	if flags.Host != nil {
		cfg.Server.Host = *flags.Host
	}
	if flags.Port != nil {
		cfg.Server.Port = *flags.Port
	}
	if flags.TemplateGlob != nil {
		cfg.Templates.Glob = *flags.TemplateGlob
	}
	if flags.StaticDirs != nil {
		cfg.Reload.StaticDirs = *flags.StaticDirs
	}
	if flags.Endpoint != nil {
		cfg.Reload.Endpoint = *flags.Endpoint
	}
	if flags.InjectScript != nil {
		cfg.Reload.InjectScript = *flags.InjectScript
	}
	if flags.Debounce != nil {
		cfg.Reload.Debounce = *flags.Debounce
	}
	if flags.DevMode != nil {
		cfg.Reload.Enabled = *flags.DevMode
	}
}

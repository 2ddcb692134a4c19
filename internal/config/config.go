// Package config loads the transform proxy configuration from a YAML file,
// with sensible defaults when no file is supplied. Core packages receive
// plain structs; they never read files or environment themselves.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mediastack/image-transform-proxy/pkg/cachepolicy"
	"github.com/mediastack/image-transform-proxy/pkg/logging"
	"github.com/mediastack/image-transform-proxy/pkg/optionscache"
	"github.com/mediastack/image-transform-proxy/pkg/strategy"
	"github.com/mediastack/image-transform-proxy/pkg/transform"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// RedisConfig holds object store connection settings.
type RedisConfig struct {
	Addr string `yaml:"addr"`
}

// CacheConfig holds the policy defaults and URL rules.
type CacheConfig struct {
	Defaults *cachepolicy.Policy   `yaml:"defaults,omitempty"`
	URLRules []cachepolicy.URLRule `yaml:"url_rules,omitempty"`
}

// OptionsCacheConfig holds the options-cache tuning knobs.
type OptionsCacheConfig struct {
	Enabled    *bool `yaml:"enabled,omitempty"`
	MaxSize    int   `yaml:"max_size,omitempty"`
	TTLSeconds int   `yaml:"ttl_seconds,omitempty"`
}

// DerivativeConfig is one named derivative: a predefined bundle of
// transform parameters plus an optional cache override.
type DerivativeConfig struct {
	Options transform.Options   `yaml:"options"`
	Cache   cachepolicy.Override `yaml:"cache,omitempty"`
}

// Config is the full process configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Redis   RedisConfig   `yaml:"redis"`

	Environment          string `yaml:"environment"`
	FallbackOrigin       string `yaml:"fallback_origin,omitempty"`
	TransformPathSegment string `yaml:"transform_path_segment,omitempty"`
	DebugHeaders         bool   `yaml:"debug_headers"`

	Strategies   strategy.RegistryConfig     `yaml:"strategies"`
	Cache        CacheConfig                 `yaml:"cache"`
	OptionsCache OptionsCacheConfig          `yaml:"options_cache"`
	Derivatives  map[string]DerivativeConfig `yaml:"derivatives,omitempty"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Server:               ServerConfig{Port: "8080"},
		Logging:              LoggingConfig{Level: "info"},
		Redis:                RedisConfig{Addr: "localhost:6379"},
		Environment:          "production",
		TransformPathSegment: "cdn-cgi/image",
	}
}

// Load reads a YAML config file on top of the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoggingSetup converts the logging section into a logging.Config.
func (c Config) LoggingSetup() logging.Config {
	setup := logging.DefaultConfig()
	if c.Logging.Level != "" {
		setup.Level = logging.LogLevel(c.Logging.Level)
	}
	setup.Pretty = c.Logging.Pretty
	return setup
}

// PolicyDefaults returns the base cache policy layer.
func (c Config) PolicyDefaults() cachepolicy.Policy {
	if c.Cache.Defaults != nil {
		return *c.Cache.Defaults
	}
	return cachepolicy.DefaultPolicy()
}

// DerivativeOptions maps derivative names to their transform bundles.
func (c Config) DerivativeOptions() map[string]transform.Options {
	out := make(map[string]transform.Options, len(c.Derivatives))
	for name, d := range c.Derivatives {
		out[name] = d.Options
	}
	return out
}

// DerivativeOverrides maps derivative names to their cache overrides,
// skipping derivatives that set nothing.
func (c Config) DerivativeOverrides() map[string]cachepolicy.Override {
	out := make(map[string]cachepolicy.Override, len(c.Derivatives))
	for name, d := range c.Derivatives {
		if d.Cache.IsZero() {
			continue
		}
		out[name] = d.Cache
	}
	return out
}

// OptionsCacheSetup converts the options-cache section into an
// optionscache.Config. The cache defaults to enabled.
func (c Config) OptionsCacheSetup() optionscache.Config {
	setup := optionscache.DefaultConfig()
	if c.OptionsCache.Enabled != nil {
		setup.Enabled = *c.OptionsCache.Enabled
	}
	if c.OptionsCache.MaxSize > 0 {
		setup.MaxSize = c.OptionsCache.MaxSize
	}
	if c.OptionsCache.TTLSeconds > 0 {
		setup.TTL = time.Duration(c.OptionsCache.TTLSeconds) * time.Second
	}
	return setup
}

// Package config loads worker runtime configuration from YAML with
// environment fallbacks.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the worker launcher configuration.
type Config struct {
	// Host is the bind host. Ignored when LocalOnly is true.
	Host string `yaml:"host"`

	// Port is the gRPC bind port.
	Port int `yaml:"port"`

	// HTTPPort enables the read-only introspection server when non-zero.
	HTTPPort int `yaml:"http_port"`

	// LocalOnly restricts connections to the loopback interface.
	// Default: true. The runtime performs no authentication.
	LocalOnly *bool `yaml:"local_only"`

	// Capacity is the executor size bounding concurrent asynchronous
	// method execution. Must be at least the number of objects expected to
	// run concurrently on this worker. Default: 32.
	Capacity int `yaml:"capacity"`

	// MaxMessageBytes bounds one transport message. Default: 32 MB.
	MaxMessageBytes int `yaml:"max_message_bytes"`

	// Store selects and tunes the result store backend.
	Store StoreConfig `yaml:"store"`
}

// StoreConfig selects the result store backend.
type StoreConfig struct {
	// Backend is "memory" or "redis". Default: "memory".
	Backend string `yaml:"backend"`

	// TTL is the result expiry duration (e.g. "30m", 0 = never).
	TTL string `yaml:"ttl"`

	// MaxEntries bounds the in-process backend's entry count (memory only).
	MaxEntries int `yaml:"max_entries"`

	// Redis holds the connection settings for the redis backend.
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Default returns the configuration an option-less worker runs with.
func Default() *Config {
	localOnly := true
	return &Config{
		Port:      50051,
		LocalOnly: &localOnly,
		Capacity:  32,
		Store:     StoreConfig{Backend: "memory"},
	}
}

// Load reads configuration from a YAML file, applies defaults and
// environment fallbacks, and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Port == 0 {
		cfg.Port = def.Port
	}
	if cfg.LocalOnly == nil {
		cfg.LocalOnly = def.LocalOnly
	}
	if cfg.Capacity == 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = def.Store.Backend
	}
	if cfg.Store.Redis.Addr == "" {
		cfg.Store.Redis.Addr = os.Getenv("TETHERGO_REDIS_ADDR")
	}
	if cfg.Store.Redis.Password == "" {
		cfg.Store.Redis.Password = os.Getenv("TETHERGO_REDIS_PASSWORD")
	}
	if cfg.Store.Redis.DB == 0 {
		if db, err := strconv.Atoi(os.Getenv("TETHERGO_REDIS_DB")); err == nil {
			cfg.Store.Redis.DB = db
		}
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.Capacity < 1 {
		return fmt.Errorf("capacity must be positive, got %d", c.Capacity)
	}
	switch c.Store.Backend {
	case "memory":
	case "redis":
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for the redis backend")
		}
		if c.Store.MaxEntries != 0 {
			return fmt.Errorf("store.max_entries is only supported by the memory backend")
		}
	default:
		return fmt.Errorf("unknown store backend: %s", c.Store.Backend)
	}
	if _, err := c.StoreTTL(); err != nil {
		return err
	}
	return nil
}

// StoreTTL parses the configured result TTL.
func (c *Config) StoreTTL() (time.Duration, error) {
	if c.Store.TTL == "" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(c.Store.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid store.ttl %q: %w", c.Store.TTL, err)
	}
	if ttl < 0 {
		return 0, fmt.Errorf("store.ttl must not be negative")
	}
	return ttl, nil
}

// IsLocalOnly reports the effective local-only flag.
func (c *Config) IsLocalOnly() bool {
	return c.LocalOnly == nil || *c.LocalOnly
}

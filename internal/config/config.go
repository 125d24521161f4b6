package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "/etc/originctl.yml"

// Store backends.
const (
	BackendRedis = "redis"
	BackendBlob  = "blob"
)

// Environment overrides, applied after the file is loaded.
const (
	EnvRedisURL  = "ORIGINCTL_REDIS_URL"
	EnvBucketURL = "ORIGINCTL_BUCKET_URL"
	EnvStateroot = "ORIGINCTL_STATEROOT"
	EnvTopicURL  = "ORIGINCTL_EVENTS_TOPIC_URL"
)

// Config represents the top-level originctl.yml configuration
type Config struct {
	Version   string        `yaml:"version"`
	Stateroot string        `yaml:"stateroot"`
	Store     StoreConfig   `yaml:"store"`
	Events    *EventsConfig `yaml:"events,omitempty"`
}

// StoreConfig selects where deployment origins are read from and written to
type StoreConfig struct {
	Backend   string `yaml:"backend"`              // "redis" or "blob"
	RedisURL  string `yaml:"redis_url,omitempty"`  // Required for backend=redis
	Namespace string `yaml:"namespace,omitempty"`  // Redis key namespace, default "default"
	BucketURL string `yaml:"bucket_url,omitempty"` // Required for backend=blob, e.g. file:///ostree/deploy
}

// EventsConfig enables origin change notifications
type EventsConfig struct {
	TopicURL string `yaml:"topic_url"`
}

// Default returns the configuration used when no file exists: origins are
// read from the local ostree deploy directory.
func Default() *Config {
	return &Config{
		Version:   "1.0",
		Stateroot: "default",
		Store: StoreConfig{
			Backend:   BackendBlob,
			Namespace: "default",
			BucketURL: "file:///ostree/deploy",
		},
	}
}

// Validate performs strict validation on the configuration
func (c *Config) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Stateroot == "" {
		return fmt.Errorf("stateroot is required")
	}
	if strings.ContainsAny(c.Stateroot, "/:") {
		return fmt.Errorf("invalid stateroot: %s (must not contain '/' or ':')", c.Stateroot)
	}

	switch c.Store.Backend {
	case BackendRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("store.redis_url is required for backend 'redis'")
		}
		if c.Store.Namespace == "" {
			return fmt.Errorf("store.namespace is required for backend 'redis'")
		}
	case BackendBlob:
		if c.Store.BucketURL == "" {
			return fmt.Errorf("store.bucket_url is required for backend 'blob'")
		}
	default:
		return fmt.Errorf("invalid store.backend: %s (must be 'redis' or 'blob')", c.Store.Backend)
	}

	if c.Events != nil && c.Events.TopicURL == "" {
		return fmt.Errorf("events.topic_url is required when events is set")
	}

	return nil
}

// applyDefaults fills optional fields left empty in the file
func (c *Config) applyDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Stateroot == "" {
		c.Stateroot = d.Stateroot
	}
	if c.Store.Backend == "" {
		c.Store.Backend = d.Store.Backend
	}
	if c.Store.Namespace == "" {
		c.Store.Namespace = d.Store.Namespace
	}
	if c.Store.Backend == BackendBlob && c.Store.BucketURL == "" {
		c.Store.BucketURL = d.Store.BucketURL
	}
}

// applyEnv overrides fields from the environment
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.Store.RedisURL = v
	}
	if v := os.Getenv(EnvBucketURL); v != "" {
		c.Store.BucketURL = v
	}
	if v := os.Getenv(EnvStateroot); v != "" {
		c.Stateroot = v
	}
	if v := os.Getenv(EnvTopicURL); v != "" {
		c.Events = &EventsConfig{TopicURL: v}
	}
}

// Load reads and validates originctl.yml from the specified path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.applyDefaults()
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault behaves like Load but falls back to Default, with environment
// overrides applied, when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	config, err := Load(path)
	if err == nil {
		return config, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	config = Default()
	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

package forum

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// ErrInvalidConfig is returned for configuration errors.
var ErrInvalidConfig = errors.New("invalid config")

// Disabled turns off a setting whose zero value selects the default. Any
// negative value has the same effect.
const Disabled = -1

// Store backends.
const (
	StoreMock      = "mock"
	StoreCassandra = "cassandra"
	StoreSQLite    = "sqlite"
	StorePostgres  = "postgres"
)

// StoreConfig selects and addresses the remote forum store.
type StoreConfig struct {
	Type     string   `yaml:"type"`
	Hosts    []string `yaml:"hosts"`
	Keyspace string   `yaml:"keyspace"`
	DSN      string   `yaml:"dsn"`
}

// RedisConfig enables the shared read-through payload cache.
type RedisConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// ConnectionConfig defines connection parameters
type ConnectionConfig struct {
	MinTries   int `yaml:"min_tries"`
	RetryDelay int `yaml:"retry_delay_ms"`
}

// RefreshConfig drives the background refetch of invalidated keys. A negative
// interval disables the background refresher.
type RefreshConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// StatisticsConfig defines metrics collection
type StatisticsConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalSeconds int  `yaml:"interval_seconds"`
}

// PresentationConfig holds settings only the presentation layer consults. A
// negative max_reply_depth offers no reply forms at all.
type PresentationConfig struct {
	MaxReplyDepth int `yaml:"max_reply_depth"`
}

// Config is the client configuration file.
type Config struct {
	Store        StoreConfig        `yaml:"store"`
	Redis        RedisConfig        `yaml:"redis"`
	Connection   ConnectionConfig   `yaml:"connection"`
	Refresh      RefreshConfig      `yaml:"refresh"`
	Statistics   StatisticsConfig   `yaml:"statistics"`
	Presentation PresentationConfig `yaml:"presentation"`
}

// DefaultConfig returns an in-memory configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// LoadConfig loads the configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// ApplyDefaults fills unset fields with their default values.
func (c *Config) ApplyDefaults() {
	if c.Store.Type == "" {
		c.Store.Type = StoreMock
	}
	if c.Store.Type == StoreCassandra && c.Store.Keyspace == "" {
		c.Store.Keyspace = "forum"
	}
	if c.Redis.TTLSeconds == 0 {
		c.Redis.TTLSeconds = 60
	}
	if c.Connection.MinTries == 0 {
		c.Connection.MinTries = 3
	}
	if c.Connection.RetryDelay == 0 {
		c.Connection.RetryDelay = 100
	}
	if c.Refresh.IntervalMs == 0 {
		c.Refresh.IntervalMs = 1000
	}
	if c.Statistics.IntervalSeconds == 0 {
		c.Statistics.IntervalSeconds = 30
	}
	if c.Presentation.MaxReplyDepth == 0 {
		c.Presentation.MaxReplyDepth = 3
	}
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	switch c.Store.Type {
	case StoreMock:
	case StoreCassandra:
		if len(c.Store.Hosts) == 0 {
			return fmt.Errorf("%w: store.hosts is required for cassandra", ErrInvalidConfig)
		}
	case StoreSQLite, StorePostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("%w: store.dsn is required for %s", ErrInvalidConfig, c.Store.Type)
		}
	default:
		return fmt.Errorf("%w: unknown store.type %q", ErrInvalidConfig, c.Store.Type)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr is required when redis is enabled", ErrInvalidConfig)
	}
	if c.Connection.MinTries < 1 || c.Connection.RetryDelay < 0 {
		return fmt.Errorf("%w: connection.min_tries must be positive", ErrInvalidConfig)
	}
	if c.Statistics.IntervalSeconds < 0 {
		return fmt.Errorf("%w: statistics.interval_seconds must not be negative", ErrInvalidConfig)
	}
	return nil
}

// RefreshInterval is the period of the background refresher. Zero means the
// refresher is disabled.
func (c *Config) RefreshInterval() time.Duration {
	if c.Refresh.IntervalMs < 0 {
		return 0
	}
	return time.Duration(c.Refresh.IntervalMs) * time.Millisecond
}

// ReplyDepth is the nesting limit for reply forms.
func (c *Config) ReplyDepth() int {
	if c.Presentation.MaxReplyDepth < 0 {
		return 0
	}
	return c.Presentation.MaxReplyDepth
}

// RetryDelay is the pause between connection attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Connection.RetryDelay) * time.Millisecond
}

// RedisTTL is the lifetime of shared payloads.
func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}

// StatisticsInterval is the period of the statistics collector.
func (c *Config) StatisticsInterval() time.Duration {
	return time.Duration(c.Statistics.IntervalSeconds) * time.Second
}

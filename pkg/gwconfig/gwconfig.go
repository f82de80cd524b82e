// Package gwconfig loads and validates the gateway daemon's own
// configuration file: listen socket, logging, and cloud backend selection.
// It is distinct from pkg/config, which validates cloud-sent sensor event
// configs at runtime.
package gwconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "/etc/knotgw/knotgw.yaml"

// DefaultSocketPath is the Unix stream socket the daemon listens on,
// matching the original gateway's UNIX_SOCKET_PATH.
const DefaultSocketPath = "/var/run/knotgwd.sock"

// Config is the daemon's top-level configuration.
type Config struct {
	// Listen is the Unix socket path to accept thing connections on.
	Listen string `yaml:"listen,omitempty"`

	// LogLevel is one of logrus's level names ("debug", "info", "warn", ...).
	LogLevel string `yaml:"log_level,omitempty"`

	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format,omitempty"`

	// Cloud selects the cloud.Client backend: "simulate" backs onto
	// pkg/cloud/simcloud against the Redis instance described below;
	// any other value is rejected by Validate since this gateway build
	// carries no other cloud backend.
	Cloud string `yaml:"cloud,omitempty"`

	// Redis is only consulted when Cloud == "simulate".
	Redis RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig describes the simulator's backing Redis instance.
type RedisConfig struct {
	Addr string `yaml:"addr,omitempty"`
	DB   int    `yaml:"db,omitempty"`
}

const (
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
	defaultCloudMode = "simulate"
	defaultRedisAddr = "127.0.0.1:6379"
)

// Default returns a Config with every field set to its production default,
// equivalent to parsing an empty file.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultSocketPath
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = defaultLogFormat
	}
	if c.Cloud == "" {
		c.Cloud = defaultCloudMode
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = defaultRedisAddr
	}
}

// Load reads and validates a YAML config file at path, applying defaults to
// any field left unset. A missing file is not an error: Default() is
// returned instead, matching settings.Load's missing-file tolerance.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes c to path as YAML, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects a config this daemon build cannot act on: an unknown
// cloud backend name, a relative/empty listen path, or an unknown
// log_level or log_format.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("gwconfig: listen path must not be empty")
	}
	if !filepath.IsAbs(c.Listen) {
		return fmt.Errorf("gwconfig: listen path %q must be absolute", c.Listen)
	}
	switch c.Cloud {
	case "simulate":
	default:
		return fmt.Errorf("gwconfig: unknown cloud backend %q (this build only supports \"simulate\")", c.Cloud)
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		return fmt.Errorf("gwconfig: unknown log_level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("gwconfig: unknown log_format %q", c.LogFormat)
	}
	return nil
}

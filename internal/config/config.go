package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config contains runtime configuration for the stixbridge service.
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Logging    LoggingConfig    `yaml:"logging" mapstructure:"logging"`
	NATS       NATSConfig       `yaml:"nats" mapstructure:"nats"`
	OpenSearch OpenSearchConfig `yaml:"opensearch" mapstructure:"opensearch"`
}

// ServerConfig captures HTTP server settings.
type ServerConfig struct {
	Port                int `yaml:"port" mapstructure:"port"`
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`
	IdleTimeoutSeconds  int `yaml:"idle_timeout_seconds" mapstructure:"idle_timeout_seconds"`
}

// LoggingConfig captures logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
}

// NATSConfig captures NATS message broker connection settings.
type NATSConfig struct {
	URL           string `yaml:"url" mapstructure:"url"`
	Enabled       bool   `yaml:"enabled" mapstructure:"enabled"`
	Subject       string `yaml:"subject" mapstructure:"subject"`
	MaxReconnects int    `yaml:"max_reconnects" mapstructure:"max_reconnects"`
	ReconnectWait int    `yaml:"reconnect_wait_seconds" mapstructure:"reconnect_wait_seconds"`
}

// ReconnectWaitDuration returns the reconnect wait as a time.Duration.
func (n NATSConfig) ReconnectWaitDuration() time.Duration {
	return time.Duration(n.ReconnectWait) * time.Second
}

// OpenSearchConfig captures OpenSearch connection settings.
type OpenSearchConfig struct {
	URL      string `yaml:"url" mapstructure:"url"`
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
	// Index is the per-type index name prefix (stixbridge-indicator, ...).
	Index string `yaml:"index" mapstructure:"index"`
}

// ReadTimeout returns the configured read timeout as a duration.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the configured write timeout as a duration.
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

// IdleTimeout returns the configured idle timeout as a duration.
func (s ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutSeconds) * time.Second
}

// Load reads configuration from the provided path and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8091)
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 15)
	v.SetDefault("server.idle_timeout_seconds", 60)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("nats.url", "nats://nats:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.subject", "stixbridge.bundles")
	v.SetDefault("nats.max_reconnects", -1) // Infinite reconnects
	v.SetDefault("nats.reconnect_wait_seconds", 2)

	v.SetDefault("opensearch.url", "https://localhost:9200")
	v.SetDefault("opensearch.enabled", false)
	v.SetDefault("opensearch.username", "admin")
	v.SetDefault("opensearch.password", "admin")
	v.SetDefault("opensearch.insecure", true)
	v.SetDefault("opensearch.index", "stixbridge")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/stixbridge")
	}

	// Environment variables override
	v.SetEnvPrefix("STIXBRIDGE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found; use defaults
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}

	if c.NATS.Enabled && c.NATS.Subject == "" {
		return fmt.Errorf("nats subject is required when nats is enabled")
	}
	if c.OpenSearch.Enabled && c.OpenSearch.Index == "" {
		return fmt.Errorf("opensearch index prefix is required when opensearch is enabled")
	}

	return nil
}

package config

import (
	"fmt"
	"math"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Role identifies which client binary the configuration belongs to.
type Role string

// Client roles.
const (
	RolePublisher  Role = "publisher"
	RoleSubscriber Role = "subscriber"
)

// Defaults shared by both roles.
const (
	DefaultBrokerHost = "localhost"
	DefaultBrokerPort = 8883 // Standard MQTT TLS port
	DefaultTopic      = "kobayashi/signals/test"
	DefaultInterval   = 10.0 // seconds
)

// maxIntervalSeconds is the largest interval representable as a time.Duration.
const maxIntervalSeconds = math.MaxInt64 / float64(time.Second)

// Config is the root configuration structure for a Kobayashi client.
// Values come from defaults, an optional YAML file, environment variables and flags.
type Config struct {
	Role      Role            `yaml:"-"`
	Broker    BrokerConfig    `yaml:"broker"`
	Topic     string          `yaml:"topic"`
	TLS       TLSConfig       `yaml:"tls"`
	Publisher PublisherConfig `yaml:"publisher"`
	Logging   LoggingConfig   `yaml:"logging"`
	Status    StatusConfig    `yaml:"status"`
}

// BrokerConfig contains MQTT broker connection details.
type BrokerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// ConnectTimeout bounds the TCP+TLS+CONNACK exchange (seconds).
	ConnectTimeout int `yaml:"connect_timeout"`

	// KeepAlive is the MQTT keepalive interval (seconds).
	KeepAlive int `yaml:"keep_alive"`

	// AckTimeout bounds how long a publish or subscribe acknowledgment is awaited (seconds).
	AckTimeout int `yaml:"ack_timeout"`
}

// TLSConfig contains the mutual TLS material paths.
type TLSConfig struct {
	CACert string `yaml:"ca_cert"`
	Cert   string `yaml:"cert"`
	Key    string `yaml:"key"`
}

// PublisherConfig contains producer loop settings.
type PublisherConfig struct {
	// Interval between publish cycles in seconds. Fractions are allowed.
	Interval float64 `yaml:"interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// StatusConfig contains the optional health/metrics HTTP endpoint settings.
type StatusConfig struct {
	// Addr is the listen address (host:port). Empty disables the endpoint.
	Addr string `yaml:"addr"`
}

// Default returns a Config with the defaults for the given role.
func Default(role Role) *Config {
	return &Config{
		Role: role,
		Broker: BrokerConfig{
			Host:           DefaultBrokerHost,
			Port:           DefaultBrokerPort,
			ConnectTimeout: 10,
			KeepAlive:      60,
			AckTimeout:     5,
		},
		Topic: DefaultTopic,
		TLS: TLSConfig{
			CACert: filepath.Join("certs", "ca", "ca.crt"),
			Cert:   filepath.Join("certs", "clients", string(role)+".crt"),
			Key:    filepath.Join("certs", "clients", string(role)+".key"),
		},
		Publisher: PublisherConfig{
			Interval: DefaultInterval,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// LoadFile overlays the YAML file at path onto cfg.
//
// Keys missing from the file keep their current values.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: KOBAYASHI_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	// Broker
	if v := os.Getenv("KOBAYASHI_BROKER_HOST"); v != "" {
		cfg.Broker.Host = v
	}
	if v := os.Getenv("KOBAYASHI_BROKER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("KOBAYASHI_BROKER_PORT: %w", err)
		}
		cfg.Broker.Port = port
	}
	if v := os.Getenv("KOBAYASHI_TOPIC"); v != "" {
		cfg.Topic = v
	}

	// TLS material
	if v := os.Getenv("KOBAYASHI_TLS_CA_CERT"); v != "" {
		cfg.TLS.CACert = v
	}
	if v := os.Getenv("KOBAYASHI_TLS_CERT"); v != "" {
		cfg.TLS.Cert = v
	}
	if v := os.Getenv("KOBAYASHI_TLS_KEY"); v != "" {
		cfg.TLS.Key = v
	}

	// Logging
	if v := os.Getenv("KOBAYASHI_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Role != RolePublisher && c.Role != RoleSubscriber {
		errs = append(errs, fmt.Sprintf("unknown role %q", c.Role))
	}

	// Broker validation
	if c.Broker.Host == "" {
		errs = append(errs, "broker.host is required")
	}
	if c.Broker.Port < 1 || c.Broker.Port > 65535 {
		errs = append(errs, "broker.port must be between 1 and 65535")
	}
	if c.Broker.ConnectTimeout < 1 {
		errs = append(errs, "broker.connect_timeout must be at least 1 second")
	}
	if c.Broker.KeepAlive < 1 {
		errs = append(errs, "broker.keep_alive must be at least 1 second")
	}
	if c.Broker.AckTimeout < 1 {
		errs = append(errs, "broker.ack_timeout must be at least 1 second")
	}

	if c.Topic == "" {
		errs = append(errs, "topic is required")
	}

	// TLS material is mandatory: the broker only accepts mutually authenticated sessions.
	if c.TLS.CACert == "" {
		errs = append(errs, "tls.ca_cert is required")
	}
	if c.TLS.Cert == "" {
		errs = append(errs, "tls.cert is required")
	}
	if c.TLS.Key == "" {
		errs = append(errs, "tls.key is required")
	}

	if c.Role == RolePublisher {
		switch iv := c.Publisher.Interval; {
		case math.IsNaN(iv) || math.IsInf(iv, 0):
			errs = append(errs, "publisher.interval must be a finite number")
		case iv <= 0:
			errs = append(errs, "publisher.interval must be greater than 0")
		case iv >= maxIntervalSeconds:
			errs = append(errs, fmt.Sprintf("publisher.interval must be below %.0f seconds", maxIntervalSeconds))
		}
	}

	if c.Status.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Status.Addr); err != nil {
			errs = append(errs, fmt.Sprintf("status.addr is invalid: %v", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Address returns the broker address as host:port.
func (b BrokerConfig) Address() string {
	return net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
}

// GetInterval returns the publish interval as a Duration.
func (c *Config) GetInterval() time.Duration {
	return time.Duration(c.Publisher.Interval * float64(time.Second))
}

// GetConnectTimeout returns the broker connect timeout as a Duration.
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.Broker.ConnectTimeout) * time.Second
}

// GetKeepAlive returns the MQTT keepalive as a Duration.
func (c *Config) GetKeepAlive() time.Duration {
	return time.Duration(c.Broker.KeepAlive) * time.Second
}

// GetAckTimeout returns the acknowledgment timeout as a Duration.
func (c *Config) GetAckTimeout() time.Duration {
	return time.Duration(c.Broker.AckTimeout) * time.Second
}

package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Flags binds the command-line surface of a client binary to a FlagSet.
//
// Defaults shown in --help are the role defaults. Only flags the user set
// explicitly override the config file and environment.
type Flags struct {
	fs   *pflag.FlagSet
	role Role

	configPath string
	broker     string
	port       int
	topic      string
	caCert     string
	cert       string
	key        string
	debug      bool
	interval   float64
	statusAddr string
	logFormat  string
}

// BindFlags registers the client flags on fs.
//
// --interval is only registered for the publisher role.
func BindFlags(fs *pflag.FlagSet, role Role) *Flags {
	def := Default(role)
	f := &Flags{fs: fs, role: role}

	fs.StringVar(&f.configPath, "config", "", "Path to an optional YAML configuration file")
	fs.StringVar(&f.broker, "broker", def.Broker.Host, "MQTT broker address")
	fs.IntVar(&f.port, "port", def.Broker.Port, "MQTT broker port")
	fs.StringVar(&f.topic, "topic", def.Topic, topicUsage(role))
	fs.StringVar(&f.caCert, "ca-cert", def.TLS.CACert, "Path to CA certificate file")
	fs.StringVar(&f.cert, "cert", def.TLS.Cert, "Path to client certificate file")
	fs.StringVar(&f.key, "key", def.TLS.Key, "Path to client key file")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.statusAddr, "status-addr", "", "Listen address for the health/metrics endpoint (disabled when empty)")
	fs.StringVar(&f.logFormat, "log-format", def.Logging.Format, "Log format: text or json")

	if role == RolePublisher {
		fs.Float64Var(&f.interval, "interval", def.Publisher.Interval, "Publish interval in seconds")
	}

	return f
}

func topicUsage(role Role) string {
	if role == RoleSubscriber {
		return "MQTT topic to subscribe to"
	}
	return "MQTT topic to publish to"
}

// Load resolves the final configuration.
//
// The loading order is:
//  1. Role defaults
//  2. YAML file given with --config (if any)
//  3. Environment variables (KOBAYASHI_*)
//  4. Flags set explicitly on the command line
//
// Returns:
//   - *Config: Resolved and validated configuration
//   - error: If the file cannot be read or parsed, or validation fails
func (f *Flags) Load() (*Config, error) {
	cfg := Default(f.role)

	if f.configPath != "" {
		if err := LoadFile(cfg, f.configPath); err != nil {
			return nil, err
		}
		cfg.Role = f.role
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	f.applyTo(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// applyTo copies explicitly set flags into cfg.
func (f *Flags) applyTo(cfg *Config) {
	if f.fs.Changed("broker") {
		cfg.Broker.Host = f.broker
	}
	if f.fs.Changed("port") {
		cfg.Broker.Port = f.port
	}
	if f.fs.Changed("topic") {
		cfg.Topic = f.topic
	}
	if f.fs.Changed("ca-cert") {
		cfg.TLS.CACert = f.caCert
	}
	if f.fs.Changed("cert") {
		cfg.TLS.Cert = f.cert
	}
	if f.fs.Changed("key") {
		cfg.TLS.Key = f.key
	}
	if f.fs.Changed("status-addr") {
		cfg.Status.Addr = f.statusAddr
	}
	if f.fs.Changed("log-format") {
		cfg.Logging.Format = f.logFormat
	}
	if f.role == RolePublisher && f.fs.Changed("interval") {
		cfg.Publisher.Interval = f.interval
	}
	if f.debug {
		cfg.Logging.Level = "debug"
	}
}

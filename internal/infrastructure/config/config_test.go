package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

// parseFlags binds the role flags to a fresh FlagSet and parses args.
func parseFlags(t *testing.T, role Role, args ...string) *Flags {
	t.Helper()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := BindFlags(fs, role)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v) error = %v", args, err)
	}
	return flags
}

func TestDefault_PerRole(t *testing.T) {
	tests := []struct {
		role     Role
		wantCert string
		wantKey  string
	}{
		{RolePublisher, filepath.Join("certs", "clients", "publisher.crt"), filepath.Join("certs", "clients", "publisher.key")},
		{RoleSubscriber, filepath.Join("certs", "clients", "subscriber.crt"), filepath.Join("certs", "clients", "subscriber.key")},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			cfg := Default(tt.role)

			if cfg.Broker.Host != "localhost" {
				t.Errorf("Broker.Host = %q, want %q", cfg.Broker.Host, "localhost")
			}
			if cfg.Broker.Port != 8883 {
				t.Errorf("Broker.Port = %d, want 8883", cfg.Broker.Port)
			}
			if cfg.Topic != "kobayashi/signals/test" {
				t.Errorf("Topic = %q, want %q", cfg.Topic, "kobayashi/signals/test")
			}
			if cfg.TLS.CACert != filepath.Join("certs", "ca", "ca.crt") {
				t.Errorf("TLS.CACert = %q", cfg.TLS.CACert)
			}
			if cfg.TLS.Cert != tt.wantCert {
				t.Errorf("TLS.Cert = %q, want %q", cfg.TLS.Cert, tt.wantCert)
			}
			if cfg.TLS.Key != tt.wantKey {
				t.Errorf("TLS.Key = %q, want %q", cfg.TLS.Key, tt.wantKey)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() on defaults error = %v", err)
			}
		})
	}
}

func TestFlags_PublisherArguments(t *testing.T) {
	flags := parseFlags(t, RolePublisher, "--broker", "test-broker", "--port", "8883", "--interval", "2.5")

	cfg, err := flags.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Broker.Host != "test-broker" {
		t.Errorf("Broker.Host = %q, want %q", cfg.Broker.Host, "test-broker")
	}
	if cfg.Broker.Port != 8883 {
		t.Errorf("Broker.Port = %d, want 8883", cfg.Broker.Port)
	}
	if got := cfg.GetInterval(); got != 2500*time.Millisecond {
		t.Errorf("GetInterval() = %v, want 2.5s", got)
	}
}

func TestFlags_SubscriberArguments(t *testing.T) {
	flags := parseFlags(t, RoleSubscriber, "--broker", "test-broker", "--topic", "test/topic", "--debug")

	cfg, err := flags.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Broker.Host != "test-broker" {
		t.Errorf("Broker.Host = %q, want %q", cfg.Broker.Host, "test-broker")
	}
	if cfg.Topic != "test/topic" {
		t.Errorf("Topic = %q, want %q", cfg.Topic, "test/topic")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestFlags_RejectsNonFiniteInterval(t *testing.T) {
	for _, v := range []string{"NaN", "+Inf", "1e300"} {
		t.Run(v, func(t *testing.T) {
			flags := parseFlags(t, RolePublisher, "--interval", v)
			if _, err := flags.Load(); err == nil {
				t.Errorf("Load() with --interval %s error = nil, want validation error", v)
			}
		})
	}
}

func TestFlags_SubscriberHasNoInterval(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs, RoleSubscriber)

	if err := fs.Parse([]string{"--interval", "3"}); err == nil {
		t.Error("Parse() expected error for --interval on subscriber, got nil")
	}
}

func TestFlags_Precedence(t *testing.T) {
	content := `
broker:
  host: "file-broker"
  port: 1884
topic: "file/topic"
publisher:
  interval: 30
`
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("KOBAYASHI_TOPIC", "env/topic")

	flags := parseFlags(t, RolePublisher, "--config", configPath, "--port", "9999")

	cfg, err := flags.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// File overrides defaults.
	if cfg.Broker.Host != "file-broker" {
		t.Errorf("Broker.Host = %q, want %q", cfg.Broker.Host, "file-broker")
	}
	if cfg.Publisher.Interval != 30 {
		t.Errorf("Publisher.Interval = %v, want 30", cfg.Publisher.Interval)
	}
	// Environment overrides the file.
	if cfg.Topic != "env/topic" {
		t.Errorf("Topic = %q, want %q", cfg.Topic, "env/topic")
	}
	// Explicit flags override everything.
	if cfg.Broker.Port != 9999 {
		t.Errorf("Broker.Port = %d, want 9999", cfg.Broker.Port)
	}
	// Untouched keys keep defaults.
	if cfg.Broker.AckTimeout != 5 {
		t.Errorf("Broker.AckTimeout = %d, want 5", cfg.Broker.AckTimeout)
	}
	if cfg.Role != RolePublisher {
		t.Errorf("Role = %q, want %q", cfg.Role, RolePublisher)
	}
}

func TestFlags_UnchangedFlagDoesNotOverrideFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("broker:\n  host: \"file-broker\"\n"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	flags := parseFlags(t, RoleSubscriber, "--config", configPath)

	cfg, err := flags.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Broker.Host != "file-broker" {
		t.Errorf("Broker.Host = %q, want %q (flag default must not win)", cfg.Broker.Host, "file-broker")
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	cfg := Default(RolePublisher)
	if err := LoadFile(cfg, "/nonexistent/path/config.yaml"); err == nil {
		t.Error("LoadFile() expected error for missing file, got nil")
	}
}

func TestLoadFile_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default(RolePublisher)
	if err := LoadFile(cfg, configPath); err == nil {
		t.Error("LoadFile() expected error for invalid YAML, got nil")
	}
}

func TestEnvOverrides_InvalidPort(t *testing.T) {
	t.Setenv("KOBAYASHI_BROKER_PORT", "not-a-port")

	flags := parseFlags(t, RolePublisher)
	if _, err := flags.Load(); err == nil {
		t.Error("Load() expected error for invalid KOBAYASHI_BROKER_PORT, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid publisher",
			mutate: func(_ *Config) {},
		},
		{
			name:    "empty host",
			mutate:  func(c *Config) { c.Broker.Host = "" },
			wantErr: "broker.host is required",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Broker.Port = 70000 },
			wantErr: "broker.port must be between 1 and 65535",
		},
		{
			name:    "empty topic",
			mutate:  func(c *Config) { c.Topic = "" },
			wantErr: "topic is required",
		},
		{
			name:    "missing ca cert",
			mutate:  func(c *Config) { c.TLS.CACert = "" },
			wantErr: "tls.ca_cert is required",
		},
		{
			name:    "zero interval",
			mutate:  func(c *Config) { c.Publisher.Interval = 0 },
			wantErr: "publisher.interval must be greater than 0",
		},
		{
			name:    "NaN interval",
			mutate:  func(c *Config) { c.Publisher.Interval = math.NaN() },
			wantErr: "publisher.interval must be a finite number",
		},
		{
			name:    "infinite interval",
			mutate:  func(c *Config) { c.Publisher.Interval = math.Inf(1) },
			wantErr: "publisher.interval must be a finite number",
		},
		{
			name:    "interval overflows duration",
			mutate:  func(c *Config) { c.Publisher.Interval = 1e300 },
			wantErr: "publisher.interval must be below",
		},
		{
			name:    "bad status address",
			mutate:  func(c *Config) { c.Status.Addr = "no-port" },
			wantErr: "status.addr is invalid",
		},
		{
			name:    "unknown role",
			mutate:  func(c *Config) { c.Role = "observer" },
			wantErr: "unknown role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default(RolePublisher)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_SubscriberIgnoresInterval(t *testing.T) {
	cfg := Default(RoleSubscriber)
	cfg.Publisher.Interval = 0

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestBrokerConfig_Address(t *testing.T) {
	b := BrokerConfig{Host: "broker.local", Port: 8883}
	if got := b.Address(); got != "broker.local:8883" {
		t.Errorf("Address() = %q, want %q", got, "broker.local:8883")
	}
}

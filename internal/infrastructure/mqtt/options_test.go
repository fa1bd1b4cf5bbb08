package mqtt

import (
	"regexp"
	"testing"
	"time"
)

func TestNewClientID(t *testing.T) {
	pattern := regexp.MustCompile(`^kobayashi-publisher-[0-9a-f]{8}$`)

	first := NewClientID("publisher")
	second := NewClientID("publisher")

	if !pattern.MatchString(first) {
		t.Errorf("NewClientID() = %q, want match %s", first, pattern)
	}
	if first == second {
		t.Errorf("NewClientID() returned %q twice, want distinct IDs", first)
	}
}

func TestOptionsBrokerURL(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"localhost", 8883, "ssl://localhost:8883"},
		{"10.0.0.5", 1884, "ssl://10.0.0.5:1884"},
		{"::1", 8883, "ssl://[::1]:8883"},
	}

	for _, tt := range tests {
		got := Options{Host: tt.host, Port: tt.port}.BrokerURL()
		if got != tt.want {
			t.Errorf("BrokerURL(%s, %d) = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	opts := Options{AckTimeout: time.Second}.withDefaults()

	if opts.ConnectTimeout != defaultConnectTimeout {
		t.Errorf("ConnectTimeout = %v, want %v", opts.ConnectTimeout, defaultConnectTimeout)
	}
	if opts.KeepAlive != defaultKeepAlive {
		t.Errorf("KeepAlive = %v, want %v", opts.KeepAlive, defaultKeepAlive)
	}
	if opts.AckTimeout != time.Second {
		t.Errorf("AckTimeout = %v, want 1s (explicit value kept)", opts.AckTimeout)
	}
}

func TestBuildClientOptions(t *testing.T) {
	tlsCfg := testTLSConfig(t)
	opts := Options{Host: "broker.local", Port: 8883, ClientID: "kobayashi-subscriber-0a1b2c3d"}.withDefaults()

	po := buildClientOptions(opts, tlsCfg)

	if len(po.Servers) != 1 || po.Servers[0].String() != "ssl://broker.local:8883" {
		t.Errorf("Servers = %v, want [ssl://broker.local:8883]", po.Servers)
	}
	if po.ClientID != opts.ClientID {
		t.Errorf("ClientID = %q, want %q", po.ClientID, opts.ClientID)
	}
	if !po.CleanSession {
		t.Error("CleanSession = false, want true")
	}
	if po.AutoReconnect {
		t.Error("AutoReconnect = true, want false")
	}
	if po.ConnectRetry {
		t.Error("ConnectRetry = true, want false")
	}
	if !po.Order {
		t.Error("Order = false, want in-order delivery")
	}
	if po.TLSConfig.ServerName != "broker.local" {
		t.Errorf("TLSConfig.ServerName = %q, want broker.local", po.TLSConfig.ServerName)
	}
	if tlsCfg.ServerName != "" {
		t.Error("buildClientOptions modified the caller's TLS configuration")
	}
}

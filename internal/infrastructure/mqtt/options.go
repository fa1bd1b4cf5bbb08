package mqtt

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for the connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultAckTimeout is the maximum time to wait for a publish or subscribe acknowledgment.
	defaultAckTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// connectGrace is added to the paho connect timeout before Connect gives up on its own.
	connectGrace = 2 * time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// QoSAtLeastOnce is the reliability level used for signals.
	QoSAtLeastOnce byte = 1
)

// Options describe one broker session.
type Options struct {
	Host     string
	Port     int
	ClientID string

	// Zero durations fall back to package defaults.
	ConnectTimeout time.Duration
	KeepAlive      time.Duration
	AckTimeout     time.Duration
}

// withDefaults fills zero durations.
func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.KeepAlive <= 0 {
		o.KeepAlive = defaultKeepAlive
	}
	if o.AckTimeout <= 0 {
		o.AckTimeout = defaultAckTimeout
	}
	return o
}

// validate checks the fields paho cannot default.
func (o Options) validate() error {
	if o.Host == "" {
		return fmt.Errorf("%w: broker host is required", ErrInvalidOptions)
	}
	if o.Port < 1 || o.Port > 65535 {
		return fmt.Errorf("%w: broker port %d out of range", ErrInvalidOptions, o.Port)
	}
	if o.ClientID == "" {
		return fmt.Errorf("%w: client ID is required", ErrInvalidOptions)
	}
	return nil
}

// BrokerURL returns the ssl:// URL paho dials.
func (o Options) BrokerURL() string {
	return "ssl://" + net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// NewClientID returns "kobayashi-<role>-" followed by eight random hex characters.
//
// The suffix keeps concurrent instances of the same role from evicting each
// other on the broker.
func NewClientID(role string) string {
	return fmt.Sprintf("kobayashi-%s-%s", role, uuid.NewString()[:8])
}

// buildClientOptions creates paho MQTT options.
//
// This configures:
//   - Broker URL (always ssl://)
//   - Client ID for identification
//   - Clean session mode
//   - Single-shot connect: no auto-reconnect, no connect retry
//   - In-order message delivery
//   - The mutual TLS configuration, with ServerName defaulted to the broker host
func buildClientOptions(opts Options, tlsCfg *tls.Config) *pahomqtt.ClientOptions {
	po := pahomqtt.NewClientOptions()

	po.AddBroker(opts.BrokerURL())
	po.SetClientID(opts.ClientID)

	// Clean session - start fresh on connect (no persistent session on broker)
	po.SetCleanSession(true)

	// A failed or dropped session ends the run; restarts belong to the supervisor.
	po.SetAutoReconnect(false)
	po.SetConnectRetry(false)

	po.SetConnectTimeout(opts.ConnectTimeout)
	po.SetKeepAlive(opts.KeepAlive)
	po.SetWriteTimeout(opts.AckTimeout)

	// Handlers run one at a time in arrival order.
	po.SetOrderMatters(true)

	cfg := tlsCfg.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = opts.Host
	}
	po.SetTLSConfig(cfg)

	return po
}

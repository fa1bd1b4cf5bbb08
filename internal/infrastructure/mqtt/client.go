package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"
)

// Reason codes passed to Observer callbacks.
const (
	// CodeSuccess reports an accepted connection or a graceful disconnect.
	CodeSuccess byte = packets.Accepted

	// CodeNetworkError reports a connection that failed or dropped below the MQTT layer.
	CodeNetworkError byte = packets.ErrNetworkError
)

// Observer receives session lifecycle events.
//
// Methods are called from paho goroutines and from the goroutine calling
// Connect, Close, Publish or Subscribe. Implementations must return promptly
// and must not call back into the Client synchronously.
type Observer interface {
	// OnConnecting is called when a connection attempt starts.
	OnConnecting()

	// OnConnected reports the connection outcome; CodeSuccess means established.
	OnConnected(code byte)

	// OnDisconnected reports the end of a session; CodeSuccess means graceful.
	OnDisconnected(code byte, err error)

	// OnPublishAck reports delivery confirmation for the publish identified by ref.
	OnPublishAck(ref uint64, err error)

	// OnSubscribeAck reports the broker's per-topic subscribe results.
	OnSubscribeAck(results []SubscribeResult)
}

// Client wraps paho.mqtt.golang with the mutual TLS session lifecycle.
//
// It provides a single-shot connect, non-blocking publish and subscribe with
// acknowledgments delivered to the Observer, and graceful disconnect.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client   pahomqtt.Client
	opts     Options
	observer Observer

	// connected tracks current connection state.
	connected bool
	connMu    sync.RWMutex

	// closed is closed after disconnect so pending acknowledgment waiters return.
	// ackMu orders pending.Add against the close in release.
	closed    chan struct{}
	closeOnce sync.Once
	closing   bool
	ackMu     sync.Mutex
	pending   sync.WaitGroup

	// logger for error/panic logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// MessageHandler is the callback signature for received messages.
//
// Handlers are invoked on a paho goroutine, one message at a time.
//
// Parameters:
//   - topic: The topic the message was received on (wildcards expanded)
//   - payload: The raw message payload
//
// Returns:
//   - error: Logged but does not affect message acknowledgment
type MessageHandler func(topic string, payload []byte) error

// NewClient prepares a session without touching the network.
//
// Parameters:
//   - opts: Broker address, client ID and timeouts
//   - tlsCfg: Output of ConfigureTLS; required
//   - observer: Receives lifecycle events; required
//
// Returns:
//   - *Client: Client ready for Connect
//   - error: ErrInvalidOptions or ErrTLSConfig when inputs are incomplete
func NewClient(opts Options, tlsCfg *tls.Config, observer Observer) (*Client, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if tlsCfg == nil {
		return nil, fmt.Errorf("%w: TLS configuration is required", ErrTLSConfig)
	}
	if observer == nil {
		return nil, fmt.Errorf("%w: observer is required", ErrInvalidOptions)
	}

	opts = opts.withDefaults()
	c := newClient(opts, observer)

	po := buildClientOptions(opts, tlsCfg)

	// Set up connection callbacks
	po.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})

	po.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleConnectionLost(err)
	})

	c.client = pahomqtt.NewClient(po)
	return c, nil
}

// newClient builds the wrapper around an as yet unset paho client.
func newClient(opts Options, observer Observer) *Client {
	return &Client{
		opts:     opts,
		observer: observer,
		closed:   make(chan struct{}),
	}
}

// Connect establishes the session with the broker.
//
// It reports OnConnecting, then blocks until the broker accepts or rejects the
// connection, the connect timeout elapses, or ctx is cancelled. There is no
// retry: a failure is final for this client.
//
// Returns:
//   - error: nil once connected, *ConnectError otherwise
func (c *Client) Connect(ctx context.Context) error {
	c.observer.OnConnecting()

	token := c.client.Connect()

	timer := time.NewTimer(c.opts.ConnectTimeout + connectGrace)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-timer.C:
		c.client.Disconnect(0)
		c.observer.OnConnected(CodeNetworkError)
		return &ConnectError{
			Kind: ConnectTimeout,
			Err:  fmt.Errorf("%w: no CONNACK after %v", ErrTimeout, c.opts.ConnectTimeout),
		}
	case <-ctx.Done():
		c.client.Disconnect(0)
		c.observer.OnConnected(CodeNetworkError)
		return &ConnectError{Kind: ConnectCancelled, Err: ctx.Err()}
	}

	if err := token.Error(); err != nil {
		cerr := newConnectError(token, err)
		code := cerr.Code
		if code == CodeSuccess {
			code = CodeNetworkError
		}
		c.observer.OnConnected(code)
		return cerr
	}

	// The OnConnectHandler callback runs asynchronously and may not have
	// executed yet, so set the state here as well.
	c.setConnected(true)

	return nil
}

// newConnectError builds the typed error for a failed connect token.
func newConnectError(token pahomqtt.Token, err error) *ConnectError {
	if ct, ok := token.(*pahomqtt.ConnectToken); ok {
		rc := ct.ReturnCode()
		if rc != packets.Accepted && rc != packets.ErrNetworkError {
			return &ConnectError{Kind: ConnectRejected, Code: rc, Err: err}
		}
	}
	return &ConnectError{Kind: classifyConnectError(err), Err: err}
}

// handleConnect is called by paho when the connection is established.
func (c *Client) handleConnect() {
	c.setConnected(true)
	c.observer.OnConnected(CodeSuccess)
}

// handleConnectionLost is called by paho when an established connection drops.
func (c *Client) handleConnectionLost(err error) {
	c.setConnected(false)
	c.observer.OnDisconnected(CodeNetworkError, err)
}

func (c *Client) setConnected(v bool) {
	c.connMu.Lock()
	c.connected = v
	c.connMu.Unlock()
}

// Close gracefully disconnects from the MQTT broker.
//
// It performs:
//  1. Disconnect with a quiesce period for pending operations
//  2. Release of goroutines still waiting for acknowledgments
//  3. OnDisconnected(CodeSuccess) to the observer
//
// Returns:
//   - error: ErrNotConnected if there was no open session
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if !c.IsConnected() {
		c.release()
		return ErrNotConnected
	}

	// Disconnect with quiesce period for pending operations
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.setConnected(false)
	c.release()

	c.observer.OnDisconnected(CodeSuccess, nil)
	return nil
}

// release unblocks acknowledgment waiters and waits for them to report.
func (c *Client) release() {
	c.closeOnce.Do(func() {
		c.ackMu.Lock()
		c.closing = true
		close(c.closed)
		c.ackMu.Unlock()
	})
	c.pending.Wait()
}

// HealthCheck verifies the MQTT connection is alive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnected()
}

// ClientID returns the MQTT client identifier of this session.
func (c *Client) ClientID() string {
	return c.opts.ClientID
}

// SetLogger sets a logger for error and panic logging.
// If not set, errors in handlers are silently ignored.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// awaitAck waits for token in the background and passes its outcome to report.
//
// A token that does not complete within the ack timeout is reported with
// ErrTimeout; a client closed meanwhile reports ErrNotConnected.
func (c *Client) awaitAck(token pahomqtt.Token, report func(err error)) {
	c.ackMu.Lock()
	if c.closing {
		c.ackMu.Unlock()
		report(ErrNotConnected)
		return
	}
	c.pending.Add(1)
	c.ackMu.Unlock()

	go func() {
		defer c.pending.Done()

		timer := time.NewTimer(c.opts.AckTimeout)
		defer timer.Stop()

		select {
		case <-token.Done():
			report(token.Error())
		case <-timer.C:
			report(fmt.Errorf("%w: no acknowledgment after %v", ErrTimeout, c.opts.AckTimeout))
		case <-c.closed:
			select {
			case <-token.Done():
				report(token.Error())
			default:
				report(ErrNotConnected)
			}
		}
	}()
}

// wrapHandler wraps a MessageHandler with panic recovery and optional logging.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT handler returned error",
					"topic", msg.Topic(),
					"error", err,
				)
			}
		}
	}
}

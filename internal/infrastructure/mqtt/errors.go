package mqtt

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// Domain-specific errors for MQTT operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when attempting operations on a disconnected client.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is returned when the connection attempt fails.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrTLSConfig is returned when the TLS material cannot be turned into a session configuration.
	ErrTLSConfig = errors.New("mqtt: invalid TLS configuration")

	// ErrInvalidOptions is returned when session options are incomplete.
	ErrInvalidOptions = errors.New("mqtt: invalid options")

	// ErrPublishFailed is returned when a publish operation fails locally.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed is returned when a subscribe operation fails.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrInvalidQoS is returned when an invalid QoS level is specified.
	// Valid QoS levels are 0, 1, or 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned when an empty or malformed topic is provided.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("mqtt: operation timed out")
)

// ConnectErrorKind classifies why a connection attempt failed.
type ConnectErrorKind int

// Connection failure kinds.
const (
	ConnectUnknown ConnectErrorKind = iota
	ConnectDNSFailure
	ConnectRefused
	ConnectHandshakeFailed
	ConnectRejected
	ConnectTimeout
	ConnectCancelled
)

func (k ConnectErrorKind) String() string {
	switch k {
	case ConnectDNSFailure:
		return "dns_failure"
	case ConnectRefused:
		return "refused"
	case ConnectHandshakeFailed:
		return "handshake_failed"
	case ConnectRejected:
		return "rejected"
	case ConnectTimeout:
		return "timeout"
	case ConnectCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ConnectError is returned by Client.Connect.
//
// It always matches ErrConnectionFailed with errors.Is.
type ConnectError struct {
	Kind ConnectErrorKind

	// Code is the CONNACK return code when Kind is ConnectRejected.
	Code byte

	Err error
}

func (e *ConnectError) Error() string {
	if e.Kind == ConnectRejected {
		return fmt.Sprintf("%v (%s, code %d): %v", ErrConnectionFailed, e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%v (%s): %v", ErrConnectionFailed, e.Kind, e.Err)
}

// Unwrap exposes ErrConnectionFailed and the underlying cause.
func (e *ConnectError) Unwrap() []error {
	return []error{ErrConnectionFailed, e.Err}
}

// classifyConnectError maps a transport error to a ConnectErrorKind.
//
// Typed errors are checked first; paho sometimes flattens the cause into a
// message, so well-known texts are matched as a fallback.
func classifyConnectError(err error) ConnectErrorKind {
	if err == nil {
		return ConnectUnknown
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ConnectDNSFailure
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ConnectRefused
	}
	if isHandshakeError(err) {
		return ConnectHandshakeFailed
	}
	if errors.Is(err, ErrTimeout) {
		return ConnectTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such host"), strings.Contains(msg, "server misbehaving"):
		return ConnectDNSFailure
	case strings.Contains(msg, "connection refused"):
		return ConnectRefused
	case strings.Contains(msg, "tls:"), strings.Contains(msg, "x509:"), strings.Contains(msg, "certificate"):
		return ConnectHandshakeFailed
	case strings.Contains(msg, "i/o timeout"), strings.Contains(msg, "timed out"):
		return ConnectTimeout
	}

	return ConnectUnknown
}

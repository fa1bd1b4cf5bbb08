package mqtt

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
	"testing"
)

func TestClassifyConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ConnectErrorKind
	}{
		{name: "nil", err: nil, want: ConnectUnknown},
		{name: "dns typed", err: &net.DNSError{Err: "no such host", Name: "broker.invalid", IsNotFound: true}, want: ConnectDNSFailure},
		{name: "dns text", err: errors.New("dial tcp: lookup broker.invalid: no such host"), want: ConnectDNSFailure},
		{
			name: "refused typed",
			err:  &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)},
			want: ConnectRefused,
		},
		{name: "refused text", err: errors.New("dial tcp 127.0.0.1:8883: connect: connection refused"), want: ConnectRefused},
		{name: "unknown authority", err: fmt.Errorf("network Error : %w", x509.UnknownAuthorityError{}), want: ConnectHandshakeFailed},
		{name: "tls text", err: errors.New("remote error: tls: bad certificate"), want: ConnectHandshakeFailed},
		{name: "timeout sentinel", err: fmt.Errorf("%w: connect", ErrTimeout), want: ConnectTimeout},
		{name: "io timeout text", err: errors.New("dial tcp 10.0.0.1:8883: i/o timeout"), want: ConnectTimeout},
		{name: "other", err: errors.New("something odd"), want: ConnectUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyConnectError(tt.err); got != tt.want {
				t.Errorf("classifyConnectError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConnectErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&ConnectError{Kind: ConnectRefused, Err: cause})

	if !errors.Is(err, ErrConnectionFailed) {
		t.Error("errors.Is(err, ErrConnectionFailed) = false, want true")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if !strings.Contains(err.Error(), "refused") {
		t.Errorf("Error() = %q, want kind in message", err.Error())
	}
}

func TestConnectErrorRejectedIncludesCode(t *testing.T) {
	err := &ConnectError{Kind: ConnectRejected, Code: 5, Err: errors.New("not authorised")}

	if !strings.Contains(err.Error(), "code 5") {
		t.Errorf("Error() = %q, want CONNACK code", err.Error())
	}
}

func TestConnectErrorKindString(t *testing.T) {
	kinds := map[ConnectErrorKind]string{
		ConnectUnknown:         "unknown",
		ConnectDNSFailure:      "dns_failure",
		ConnectRefused:         "refused",
		ConnectHandshakeFailed: "handshake_failed",
		ConnectRejected:        "rejected",
		ConnectTimeout:         "timeout",
		ConnectCancelled:       "cancelled",
	}
	for kind, want := range kinds {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}

package testutil

import (
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

// Broker is an in-process MQTT broker listening with mutual TLS on 127.0.0.1.
type Broker struct {
	Host   string
	Port   int
	Server *mqtt.Server
}

// StartBroker starts a broker that accepts any client presenting a certificate
// signed by the test CA. It is closed when the test ends.
func StartBroker(t testing.TB, certs *Certs) *Broker {
	t.Helper()

	port := FreePort(t)

	server := mqtt.New(&mqtt.Options{
		InlineClient: true,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		t.Fatalf("adding auth hook: %v", err)
	}

	tcp := listeners.NewTCP(listeners.Config{
		ID:        "tls",
		Address:   net.JoinHostPort("127.0.0.1", strconv.Itoa(port)),
		TLSConfig: certs.ServerTLS(t),
	})
	if err := server.AddListener(tcp); err != nil {
		t.Fatalf("adding listener: %v", err)
	}

	if err := server.Serve(); err != nil {
		t.Fatalf("starting broker: %v", err)
	}
	t.Cleanup(func() { _ = server.Close() })

	waitForListener(t, port)

	return &Broker{Host: "127.0.0.1", Port: port, Server: server}
}

// Publish injects a message as if a remote client had published it.
func (b *Broker) Publish(t testing.TB, topic string, payload []byte) {
	t.Helper()

	if err := b.Server.Publish(topic, payload, false, 1); err != nil {
		t.Fatalf("broker publish: %v", err)
	}
}

// FreePort returns a TCP port on 127.0.0.1 that was free a moment ago.
func FreePort(t testing.TB) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("finding free port: %v", err)
	}
	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port
}

func waitForListener(t testing.TB, port int) {
	t.Helper()

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("broker did not start listening on %s", addr)
}

// Package mqtt provides the mutually authenticated MQTT session used by both
// Kobayashi clients.
//
// This package manages:
//   - TLS policy: CA trust anchor, client key pair, mandatory peer verification
//   - A single-shot connection to the broker (no automatic reconnect)
//   - Message publishing with QoS guarantees and asynchronous acknowledgments
//   - Topic subscriptions with wildcard validation
//   - Lifecycle notifications through the Observer interface
//
// # Architecture
//
// paho.mqtt.golang runs network I/O and callbacks on its own goroutines. This
// package never mutates application state from those goroutines; it forwards
// every lifecycle event to an Observer, which is expected to serialise them
// (see package session).
//
//	credentials → ConfigureTLS → NewClient → Connect → Publish/Subscribe → Close
//
// # Security Considerations
//
//   - TLS is always on; the broker URL scheme is ssl://
//   - InsecureSkipVerify is never set; the server certificate must chain to the CA
//   - Minimum protocol version is TLS 1.2; cipher suites are Go defaults
//   - The broker is expected to require and verify the client certificate
//
// # Usage
//
//	tlsCfg, err := mqtt.ConfigureTLS(paths)
//	if err != nil {
//	    return err
//	}
//	client, err := mqtt.NewClient(mqtt.Options{Host: "localhost", Port: 8883,
//	    ClientID: mqtt.NewClientID("publisher")}, tlsCfg, observer)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Publish(mqtt.DefaultTopic, []byte(`{"message_id":1}`), 1, 1)
package mqtt

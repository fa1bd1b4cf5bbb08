// Package session owns the broker connection state of a Kobayashi client.
//
// A Dispatcher is a single-goroutine actor: transport callbacks post events
// into its mailbox and only Run mutates the ConnectionState. It reacts to
// connect, acknowledgment and disconnect events by logging, updating metrics
// and, for the subscriber role, issuing the topic subscription once the
// session is up. It never performs blocking I/O itself.
//
// Shutdown is the scoped cleanup run on every exit path of a client.
package session

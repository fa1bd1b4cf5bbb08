// Package producer implements the publisher role's message loop.
//
// Each cycle builds one signal message, publishes it at QoS 1 and then sleeps
// for the configured interval (fixed delay, not fixed rate). Publish failures
// are logged and the loop continues; delivery acknowledgments are reported
// separately by the session dispatcher.
package producer

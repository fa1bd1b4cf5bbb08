// Package consumer implements the subscriber role's message loop.
//
// The transport delivers messages through Loop.Handler, which hands each one
// to the goroutine running Loop.Run. Run validates and logs the messages one
// at a time. Malformed messages are logged and discarded; a message with red
// status additionally raises an alert log entry.
package consumer

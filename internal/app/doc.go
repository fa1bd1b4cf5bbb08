// Package app wires the components of a Kobayashi client into a run.
//
// RunPublisher and RunSubscriber perform the same setup: verify credentials,
// build the TLS configuration, start the session dispatcher (and the optional
// status server), connect once. They then run the role's loop until the
// context is cancelled and always finish with a single graceful disconnect.
//
// Setup failures are returned; the command maps them to exit code 1.
// Everything after a successful connect is logged, never returned.
package app

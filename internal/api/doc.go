// Package api implements the local status endpoint of a Kobayashi client.
//
// This package provides:
//   - GET /health: connection state as JSON, 503 unless connected
//   - GET /metrics: the client's Prometheus registry
//   - Middleware stack (request ID, logging, recovery)
//
// The endpoint is read-only and disabled unless a listen address is
// configured. It never touches the broker session; the state comes from the
// session dispatcher.
package api

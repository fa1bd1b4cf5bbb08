// Package metrics exposes Prometheus metrics for the Kobayashi clients.
//
// Each Recorder owns its registry, so tests and multiple clients in one
// process never collide on the default registry. All methods are safe on a
// nil *Recorder, which records nothing.
package metrics

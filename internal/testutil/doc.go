// Package testutil provides fixtures shared by the Kobayashi client tests:
// a throwaway certificate authority with broker and client certificates,
// and an in-process mutual TLS MQTT broker.
//
// Nothing here is used outside of tests.
package testutil

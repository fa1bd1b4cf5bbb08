// Package credentials verifies that the mutual TLS material exists and is
// readable before any network activity takes place.
//
// Verification only stats and opens files; it never parses them. Parsing and
// pairing the certificate with its key is the session layer's job
// (see mqtt.ConfigureTLS).
package credentials

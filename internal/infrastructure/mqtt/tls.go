package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/nerrad567/kobayashi-signals/internal/credentials"
)

// tlsMinVersion is the minimum TLS version for broker sessions.
const tlsMinVersion = tls.VersionTLS12

// ConfigureTLS builds the mutual TLS client configuration.
//
// It configures:
//   - RootCAs from the CA bundle (the broker certificate must chain to it)
//   - The client certificate/key pair presented to the broker
//   - TLS 1.2 as the minimum version, cipher suites left to Go defaults
//
// Peer verification is never disabled.
//
// Parameters:
//   - paths: Verified credential file paths
//
// Returns:
//   - *tls.Config: Configuration ready for NewClient
//   - error: Wrapping ErrTLSConfig if the material is malformed or mismatched
func ConfigureTLS(paths credentials.Paths) (*tls.Config, error) {
	caPEM, err := os.ReadFile(paths.CACert)
	if err != nil {
		return nil, fmt.Errorf("%w: reading CA certificate %s: %w", ErrTLSConfig, paths.CACert, err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("%w: no PEM certificates found in %s", ErrTLSConfig, paths.CACert)
	}

	pair, err := tls.LoadX509KeyPair(paths.Cert, paths.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: loading client key pair: %w", ErrTLSConfig, err)
	}

	return &tls.Config{
		RootCAs:      pool,
		Certificates: []tls.Certificate{pair},
		MinVersion:   tlsMinVersion,
	}, nil
}

// isHandshakeError reports whether err comes from certificate or TLS protocol failure.
func isHandshakeError(err error) bool {
	var verifyErr *tls.CertificateVerificationError
	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var invalidErr x509.CertificateInvalidError
	var recordErr tls.RecordHeaderError
	var alertErr tls.AlertError

	return errors.As(err, &verifyErr) ||
		errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &alertErr)
}

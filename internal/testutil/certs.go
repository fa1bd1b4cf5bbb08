package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/kobayashi-signals/internal/credentials"
)

// Certs is a set of PEM files written to a temporary directory.
//
// The broker certificate is valid for "localhost" and 127.0.0.1. RogueCACert
// is an unrelated CA for negative handshake tests; it signed only the
// RogueClientCert identity, which the broker must refuse.
type Certs struct {
	Dir string

	CACert      string
	ServerCert  string
	ServerKey   string
	ClientCert  string
	ClientKey   string
	RogueCACert string

	RogueClientCert string
	RogueClientKey  string

	caPool *x509.CertPool
}

type issuer struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
}

// NewCerts generates a CA, a broker certificate, a client certificate, a
// rogue CA and a rogue client certificate under t.TempDir().
func NewCerts(t testing.TB) *Certs {
	t.Helper()

	dir := t.TempDir()
	c := &Certs{
		Dir:         dir,
		CACert:      filepath.Join(dir, "ca.crt"),
		ServerCert:  filepath.Join(dir, "broker.crt"),
		ServerKey:   filepath.Join(dir, "broker.key"),
		ClientCert:  filepath.Join(dir, "client.crt"),
		ClientKey:   filepath.Join(dir, "client.key"),
		RogueCACert: filepath.Join(dir, "rogue-ca.crt"),

		RogueClientCert: filepath.Join(dir, "rogue-client.crt"),
		RogueClientKey:  filepath.Join(dir, "rogue-client.key"),
	}

	ca := newCA(t, "Kobayashi Test CA")
	writeCert(t, c.CACert, ca.cert.Raw)

	rogue := newCA(t, "Rogue Test CA")
	writeCert(t, c.RogueCACert, rogue.cert.Raw)

	server := &x509.Certificate{
		Subject:     pkix.Name{CommonName: "localhost"},
		DNSNames:    []string{"localhost"},
		IPAddresses: []net.IP{net.IPv4(127, 0, 0, 1)},
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	issueLeaf(t, ca, server, c.ServerCert, c.ServerKey)

	client := &x509.Certificate{
		Subject:     pkix.Name{CommonName: "kobayashi-test-client"},
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	issueLeaf(t, ca, client, c.ClientCert, c.ClientKey)

	rogueClient := &x509.Certificate{
		Subject:     pkix.Name{CommonName: "kobayashi-rogue-client"},
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	issueLeaf(t, rogue, rogueClient, c.RogueClientCert, c.RogueClientKey)

	c.caPool = x509.NewCertPool()
	c.caPool.AddCert(ca.cert)

	return c
}

// ClientPaths returns the credential paths of the valid client identity.
func (c *Certs) ClientPaths() credentials.Paths {
	return credentials.Paths{CACert: c.CACert, Cert: c.ClientCert, Key: c.ClientKey}
}

// ServerTLS returns a broker TLS configuration that requires client certificates
// signed by the test CA.
func (c *Certs) ServerTLS(t testing.TB) *tls.Config {
	t.Helper()

	pair, err := tls.LoadX509KeyPair(c.ServerCert, c.ServerKey)
	if err != nil {
		t.Fatalf("loading broker key pair: %v", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{pair},
		ClientCAs:    c.caPool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}
}

func newCA(t testing.TB, name string) issuer {
	t.Helper()

	key := newKey(t)
	template := &x509.Certificate{
		SerialNumber:          newSerial(t),
		Subject:               pkix.Name{CommonName: name, Organization: []string{"Kobayashi Test"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create CA certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse CA certificate: %v", err)
	}

	return issuer{cert: cert, key: key}
}

func issueLeaf(t testing.TB, ca issuer, template *x509.Certificate, certPath, keyPath string) {
	t.Helper()

	key := newKey(t)
	template.SerialNumber = newSerial(t)
	template.NotBefore = time.Now().Add(-time.Hour)
	template.NotAfter = time.Now().Add(24 * time.Hour)
	template.KeyUsage = x509.KeyUsageDigitalSignature
	template.BasicConstraintsValid = true

	der, err := x509.CreateCertificate(rand.Reader, template, ca.cert, &key.PublicKey, ca.key)
	if err != nil {
		t.Fatalf("create certificate %s: %v", template.Subject.CommonName, err)
	}
	writeCert(t, certPath, der)

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	writePEM(t, keyPath, "PRIVATE KEY", keyDER)
}

func newKey(t testing.TB) *ecdsa.PrivateKey {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func newSerial(t testing.TB) *big.Int {
	t.Helper()

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		t.Fatalf("generate serial: %v", err)
	}
	return serial
}

func writeCert(t testing.TB, path string, der []byte) {
	t.Helper()
	writePEM(t, path, "CERTIFICATE", der)
}

func writePEM(t testing.TB, path, blockType string, der []byte) {
	t.Helper()

	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

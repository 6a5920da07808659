// Package tls builds mutual-TLS client configurations.
//
// ratecast only acts as a client (towards external model services), so this
// package builds client configurations: TLS 1.3 minimum, AES-GCM and
// ChaCha20-Poly1305 suites, a client certificate, and server verification
// against a private CA.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// Config holds the client certificate, key and CA file paths.
type Config struct {
	Enabled  bool
	CertFile string
	KeyFile  string
	CAFile   string
}

// Validate returns an error if TLS is enabled but a certificate file is
// unset or inaccessible.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.CertFile == "" || c.KeyFile == "" || c.CAFile == "" {
		return errors.New("tls enabled but cert/key/ca files not specified")
	}
	return validateCertFiles(c.CertFile, c.KeyFile, c.CAFile)
}

// ClientConfig returns the mTLS client configuration, or nil when TLS is
// disabled.
func (c Config) ClientConfig() (*tls.Config, error) {
	if !c.Enabled {
		return nil, nil
	}
	return NewClientTLSConfig(c.CertFile, c.KeyFile, c.CAFile)
}

// NewClientTLSConfig loads a client certificate and a CA bundle. The client
// presents the certificate and verifies the server against the CA.
func NewClientTLSConfig(certFile, keyFile, caFile string) (*tls.Config, error) {
	if err := validateCertFiles(certFile, keyFile, caFile); err != nil {
		return nil, err
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load client certificate: %w", err)
	}

	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA certificate")
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      caCertPool,
		MinVersion:   tls.VersionTLS13,
		CipherSuites: []uint16{
			tls.TLS_AES_128_GCM_SHA256,
			tls.TLS_AES_256_GCM_SHA384,
			tls.TLS_CHACHA20_POLY1305_SHA256,
		},
	}, nil
}

func validateCertFiles(certFile, keyFile, caFile string) error {
	for _, f := range []struct{ name, path string }{
		{"certificate", certFile},
		{"key", keyFile},
		{"CA certificate", caFile},
	} {
		if f.path == "" {
			return fmt.Errorf("%s file path cannot be empty", f.name)
		}
		if _, err := os.Stat(f.path); err != nil {
			return fmt.Errorf("%s file %q: %w", f.name, f.path, err)
		}
	}
	return nil
}

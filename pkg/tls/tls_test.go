package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	cryptotls "crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writePKI writes a CA and a client certificate signed by it into dir.
func writePKI(t *testing.T, dir string) Config {
	t.Helper()

	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	caTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test-ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, &caKey.PublicKey, caKey)
	if err != nil {
		t.Fatal(err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "ratecast"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, caTmpl, &key.PublicKey, caKey)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	cfg := Config{
		Enabled:  true,
		CertFile: filepath.Join(dir, "client.crt"),
		KeyFile:  filepath.Join(dir, "client.key"),
		CAFile:   filepath.Join(dir, "ca.crt"),
	}
	writePEM(t, cfg.CAFile, "CERTIFICATE", caDER)
	writePEM(t, cfg.CertFile, "CERTIFICATE", der)
	writePEM(t, cfg.KeyFile, "EC PRIVATE KEY", keyDER)
	return cfg
}

func writePEM(t *testing.T, path, typ string, der []byte) {
	t.Helper()
	data := pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestConfig_ClientConfig(t *testing.T) {
	cfg := writePKI(t, t.TempDir())

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	tc, err := cfg.ClientConfig()
	if err != nil {
		t.Fatalf("ClientConfig() error = %v", err)
	}
	if tc.MinVersion != cryptotls.VersionTLS13 {
		t.Errorf("MinVersion = %x, want TLS 1.3", tc.MinVersion)
	}
	if len(tc.Certificates) != 1 {
		t.Errorf("len(Certificates) = %d, want 1", len(tc.Certificates))
	}
	if tc.RootCAs == nil {
		t.Error("RootCAs should be set")
	}
}

func TestConfig_Disabled(t *testing.T) {
	var cfg Config
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
	tc, err := cfg.ClientConfig()
	if err != nil || tc != nil {
		t.Errorf("ClientConfig() = %v, %v; want nil, nil", tc, err)
	}
}

func TestConfig_Validate(t *testing.T) {
	dir := t.TempDir()
	good := writePKI(t, dir)

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing paths", Config{Enabled: true}},
		{"missing key", Config{Enabled: true, CertFile: good.CertFile, KeyFile: filepath.Join(dir, "nope"), CAFile: good.CAFile}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Error("Validate() expected error")
			}
		})
	}
}

func TestNewClientTLSConfig_BadCA(t *testing.T) {
	dir := t.TempDir()
	cfg := writePKI(t, dir)
	if err := os.WriteFile(cfg.CAFile, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewClientTLSConfig(cfg.CertFile, cfg.KeyFile, cfg.CAFile); err == nil {
		t.Error("NewClientTLSConfig() expected error for unparsable CA")
	}
}

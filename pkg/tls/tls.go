// Package tls builds the server TLS configuration for the poller's HTTP API.
//
// Configurations enforce TLS 1.3. When a CA file is given, clients must
// present a certificate signed by it.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// Config holds certificate file paths.
type Config struct {
	Enabled  bool
	CertFile string
	KeyFile  string

	// CAFile is optional; setting it turns on client certificate verification.
	CAFile string
}

// Validate reports missing or unreadable files when TLS is enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.CertFile == "" || c.KeyFile == "" {
		return errors.New("tls enabled but cert/key files not specified")
	}

	paths := []string{c.CertFile, c.KeyFile}
	if c.CAFile != "" {
		paths = append(paths, c.CAFile)
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("tls file %q: %w", path, err)
		}
	}

	return nil
}

// ServerConfig returns the crypto/tls configuration for c. It returns nil
// when TLS is disabled.
func (c Config) ServerConfig() (*tls.Config, error) {
	if !c.Enabled {
		return nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		MinVersion: tls.VersionTLS13,
	}

	if c.CAFile == "" {
		return cfg, nil
	}

	pem, err := os.ReadFile(c.CAFile)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("failed to parse CA certificate")
	}

	cfg.ClientCAs = pool
	cfg.ClientAuth = tls.RequireAndVerifyClientCert
	return cfg, nil
}

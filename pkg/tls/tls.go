// Package tls builds TLS client configurations for endpoints that present
// certificates signed by a private CA, such as the harvest proxy.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// NewClientTLSConfig creates a client TLS configuration that trusts the
// CA certificate at caFile. Servers must present a certificate signed by
// that CA or by a system root.
//
// An empty caFile returns nil, meaning the system trust store alone
// applies.
func NewClientTLSConfig(caFile string) (*tls.Config, error) {
	if caFile == "" {
		return nil, nil
	}

	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate: %w", err)
	}

	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA certificate")
	}

	return &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}, nil
}

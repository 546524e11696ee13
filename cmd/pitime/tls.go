package main

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Failed to load CA cert.
var errFailedToAppendCACert = errors.New("failed to append CA cert to CA pool")

// Creates a new pool of x509 certificates from the list of file paths
// provided, appended to any system installed certificates.
func newCACertPool(cacerts []string) (*x509.CertPool, error) {
	logger := logger.V(1).WithValues("cacerts", cacerts)
	if len(cacerts) == 0 {
		logger.V(0).Info("No CA certificate paths provided; returning nil for CA cert pool")
		return nil, nil
	}
	logger.V(0).Info("Building certificate pool from file(s)")
	pool, err := x509.SystemCertPool()
	if err != nil {
		return nil, fmt.Errorf("failed to build new CA cert pool from SystemCertPool: %w", err)
	}
	for _, cacert := range cacerts {
		ca, err := os.ReadFile(cacert)
		if err != nil {
			return nil, fmt.Errorf("failed to read from certificate file %s: %w", cacert, err)
		}
		if ok := pool.AppendCertsFromPEM(ca); !ok {
			return nil, fmt.Errorf("failed to process CA cert %s: %w", cacert, errFailedToAppendCACert)
		}
	}
	return pool, nil
}

// Creates the TLS configuration the client will present to PiTime service
// targets, honoring the cacert/cert/key/insecure options.
func newClientTLSConfig() (*tls.Config, error) {
	certFile := viper.GetString("cert")
	keyFile := viper.GetString("key")
	logger := logger.V(1).WithValues("cert", certFile, "key", keyFile)
	logger.V(0).Info("Preparing client TLS configuration")
	tlsConf := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	if certFile != "" && keyFile != "" {
		logger.V(1).Info("Loading x509 certificate and key")
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load certificate %s and key %s: %w", certFile, keyFile, err)
		}
		tlsConf.Certificates = []tls.Certificate{cert}
	}
	rootCAs, err := newCACertPool(viper.GetStringSlice("cacert"))
	if err != nil {
		return nil, err
	}
	if rootCAs != nil {
		tlsConf.RootCAs = rootCAs
	}
	if viper.GetBool("insecure") {
		tlsConf.InsecureSkipVerify = true
	}
	return tlsConf, nil
}

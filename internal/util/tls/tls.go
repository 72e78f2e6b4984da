/*
Copyright 2026 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// This file provides tls utilities.

package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
)

// Config describes the client side TLS settings of an outbound connection.
type Config struct {
	InsecureSkipVerify bool   `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	Dir                string `json:"dir" yaml:"dir"`
	CACertFile         string `json:"ca_cert_file" yaml:"ca_cert_file"`
	CertFile           string `json:"cert_file" yaml:"cert_file"`
	KeyFile            string `json:"key_file" yaml:"key_file"`
	// MinVersion is "1.2" or "1.3"; empty keeps the Go default.
	MinVersion string `json:"min_version" yaml:"min_version"`
}

func (c Config) IsEmpty() bool {
	return c == Config{}
}

// ClientConfig builds a *tls.Config, or nil when nothing is customised.
func (c Config) ClientConfig() (*tls.Config, error) {
	if c.IsEmpty() {
		return nil, nil
	}
	certFile := JoinCertPath(c.Dir, c.CertFile)
	keyFile := JoinCertPath(c.Dir, c.KeyFile)
	caCertFile := JoinCertPath(c.Dir, c.CACertFile)

	tlsConf := &tls.Config{}
	if certFile != "" || keyFile != "" {
		if certFile == "" || keyFile == "" {
			return nil, fmt.Errorf("ClientConfig: both cert_file and key_file must be specified")
		}
		certificate, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("ClientConfig: LoadX509KeyPair failed: %w", err) // pragma: allowlist secret
		}
		tlsConf.Certificates = []tls.Certificate{certificate}
	}

	if c.InsecureSkipVerify {
		tlsConf.InsecureSkipVerify = true
	} else if caCertFile != "" {
		ca, err := os.ReadFile(caCertFile)
		if err != nil {
			return nil, fmt.Errorf("ClientConfig: could not read CA certificate file: %w", err) // pragma: allowlist secret
		}
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM(ca); !ok {
			return nil, fmt.Errorf("ClientConfig: AppendCertsFromPEM failed for %s", caCertFile) // pragma: allowlist secret
		}
		tlsConf.RootCAs = certPool
	}

	switch c.MinVersion {
	case "":
	case "1.2":
		tlsConf.MinVersion = tls.VersionTLS12
	case "1.3":
		tlsConf.MinVersion = tls.VersionTLS13
	default:
		return nil, fmt.Errorf("ClientConfig: unsupported min_version %q", c.MinVersion)
	}
	return tlsConf, nil
}

// Return the cert path only when file is not empty.
func JoinCertPath(dir, file string) string {
	if len(file) > 0 {
		return filepath.Join(dir, file)
	}
	return ""
}

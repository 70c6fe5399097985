package config

import (
	"crypto/tls"
	"fmt"

	"github.com/vitaliisemenov/gatehouse/internal/matcher"
)

// TLSContent names the certificate material one site contributes to its
// listener's SNI resolver.
type TLSContent struct {
	CertFile string
	KeyFile  string
	Hosts    *matcher.HostMatcher
}

// TLSConfig resolves the server certificate from the SNI hostname.
// Certificates load once at startup; a missing or malformed pair is a
// fatal configuration error.
type TLSConfig struct {
	entries []tlsEntry
}

type tlsEntry struct {
	hosts *matcher.HostMatcher
	cert  *tls.Certificate
}

// NewTLSConfig loads every certificate of a listener group.
func NewTLSConfig(group []TLSContent) (*TLSConfig, error) {
	c := &TLSConfig{}
	for _, content := range group {
		cert, err := tls.LoadX509KeyPair(content.CertFile, content.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load certificate %q: %w", content.CertFile, err)
		}
		c.entries = append(c.entries, tlsEntry{hosts: content.Hosts, cert: &cert})
	}
	return c, nil
}

// ServerConfig builds the listener's TLS configuration. A handshake
// without SNI, or with a hostname no site claims, is rejected and the
// connection dropped; ALPN offers h2 before http/1.1.
func (c *TLSConfig) ServerConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		NextProtos:     []string{"h2", "http/1.1"},
		GetCertificate: c.getCertificate,
	}
}

func (c *TLSConfig) getCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if hello.ServerName == "" {
		return nil, fmt.Errorf("client sent no server name")
	}
	for _, entry := range c.entries {
		if entry.hosts.IsMatch(hello.ServerName) {
			return entry.cert, nil
		}
	}
	return nil, fmt.Errorf("no certificate for %q", hello.ServerName)
}

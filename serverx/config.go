package serverx

import (
	"crypto/tls"
	"fmt"
	"os"
	"time"

	"connectrpc.com/connect"
)

// Config holds server configuration for both listeners.
type Config struct {
	// H2Addr is the HTTP/2 listen address (e.g., ":8080").
	H2Addr string
	// H3Addr is the HTTP/3 (QUIC) listen address (e.g., ":8443").
	H3Addr string
	// H2Enabled controls whether the TCP listener starts. Default true.
	H2Enabled bool
	// H3Enabled controls whether the QUIC listener starts. Default true.
	H3Enabled bool
	// TLSConfig is required when H3Enabled is true and optional for HTTP/2.
	TLSConfig *tls.Config
	// GracePeriod bounds graceful shutdown. Default 30s.
	GracePeriod time.Duration
	// Interceptors are applied to every Connect handler bound via Bind.
	Interceptors []connect.Interceptor
}

// DefaultConfig returns a Config with both listeners enabled on the
// conventional ports.
func DefaultConfig() Config {
	return Config{
		H2Addr:      ":8080",
		H3Addr:      ":8443",
		H2Enabled:   true,
		H3Enabled:   true,
		GracePeriod: 30 * time.Second,
	}
}

// ConfigFromEnv returns a Config populated from environment variables,
// falling back to DefaultConfig for anything unset. Recognized variables:
// H2_PORT, H3_PORT, H2_ENABLED, H3_ENABLED, TLS_CERT_PATH, TLS_KEY_PATH.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if v := envOrDefault("H2_PORT", ""); v != "" {
		cfg.H2Addr = ":" + v
	}
	if v := envOrDefault("H3_PORT", ""); v != "" {
		cfg.H3Addr = ":" + v
	}
	if envOrDefault("H2_ENABLED", "true") == "false" {
		cfg.H2Enabled = false
	}
	if envOrDefault("H3_ENABLED", "true") == "false" {
		cfg.H3Enabled = false
	}

	certPath := envOrDefault("TLS_CERT_PATH", "")
	keyPath := envOrDefault("TLS_KEY_PATH", "")
	if certPath != "" && keyPath != "" {
		tlsCfg, err := NewTLSConfig(certPath, keyPath)
		if err != nil {
			return cfg, err
		}
		cfg.TLSConfig = tlsCfg
	}
	return cfg, nil
}

// Validate reports configuration that cannot produce a working server.
func (c Config) Validate() error {
	if !c.H2Enabled && !c.H3Enabled {
		return fmt.Errorf("serverx: at least one listener must be enabled")
	}
	if c.H3Enabled && c.TLSConfig == nil {
		return fmt.Errorf("serverx: TLS config required for HTTP/3")
	}
	return nil
}

// NewTLSConfig builds a TLS 1.3 configuration from certificate and key
// files, advertising h3, h2, and http/1.1.
func NewTLSConfig(certPath, keyPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("loading TLS keypair: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
		NextProtos:   []string{"h3", "h2", "http/1.1"},
	}, nil
}

func envOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

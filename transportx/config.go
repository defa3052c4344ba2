package transportx

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ClientConfig holds client configuration. It is constructed once at client
// creation and immutable thereafter.
type ClientConfig struct {
	// BaseURL is the server base URL (e.g., "https://api.example.com:8443").
	BaseURL string `validate:"omitempty,url"`
	// TLSConfig for TLS connections. If nil, TLS 1.3 defaults are used.
	// Explicitly supplied configs are raised to a 1.3 minimum.
	TLSConfig *tls.Config `validate:"-"`
	// H3Enabled controls whether HTTP/3 is attempted at all. Default true.
	H3Enabled bool
	// H3Timeout bounds the HTTP/3 connection handshake. Default 5s.
	H3Timeout time.Duration `validate:"min=0"`
	// H3RetryInterval is the cool-down before re-attempting HTTP/3 after a
	// failure. Must be positive when H3Enabled. Default 5m.
	H3RetryInterval time.Duration `validate:"min=0"`
	// RequestTimeout is the default per-request timeout. Default 30s.
	RequestTimeout time.Duration `validate:"min=0"`
	// BreakerEnabled wraps request execution in a circuit breaker.
	BreakerEnabled bool
	// BreakerThreshold is the consecutive-failure count that trips the
	// breaker. Default 5.
	BreakerThreshold uint32
}

// DefaultClientConfig returns a ClientConfig with production defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		H3Enabled:        true,
		H3Timeout:        5 * time.Second,
		H3RetryInterval:  5 * time.Minute,
		RequestTimeout:   30 * time.Second,
		BreakerThreshold: 5,
	}
}

// Validate checks the configuration invariants.
func (c *ClientConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("client config: %w", err)
	}
	if c.H3Enabled && c.H3RetryInterval <= 0 {
		return fmt.Errorf("client config: H3RetryInterval must be positive when H3Enabled")
	}
	return nil
}

// withDefaults fills zero-valued timeouts. The retry interval is left alone
// so Validate can enforce the H3Enabled invariant explicitly.
func (c ClientConfig) withDefaults() ClientConfig {
	if c.H3Timeout == 0 {
		c.H3Timeout = 5 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.BreakerThreshold == 0 {
		c.BreakerThreshold = 5
	}
	return c
}

// tlsConfig returns the effective TLS configuration: a TLS 1.3 default when
// none is supplied, otherwise a clone raised to a 1.3 minimum.
func (c *ClientConfig) tlsConfig() *tls.Config {
	if c.TLSConfig == nil {
		return &tls.Config{MinVersion: tls.VersionTLS13}
	}
	cfg := c.TLSConfig.Clone()
	if cfg.MinVersion < tls.VersionTLS13 {
		cfg.MinVersion = tls.VersionTLS13
	}
	return cfg
}

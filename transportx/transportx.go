// Package transportx provides an HTTP client that prefers HTTP/3 and falls
// back to HTTP/2 when QUIC is blocked, slow to establish, or fails
// mid-session.
//
// Overview:
//   - Responsibility: Protocol selection and classified transport errors for
//     outbound RPC connections
//   - Key Types: Client for the dual-protocol handle, Selector for the
//     fallback state machine, ClientConfig for construction
//   - Concurrency Model: Client and Selector are safe for concurrent use
//   - Error Semantics: Connection-level failures surface as *TransportError;
//     context cancellation passes through unwrapped
//
// The client never retries a failed request. The fallback decision only
// affects future connection attempts: callers observing a transport error
// call MarkH3Failed and reissue the request themselves, or use DoWithRetry
// which implements that two-step protocol.
//
// Usage:
//
//	client, err := transportx.NewClient(transportx.DefaultClientConfig(), logger)
//	resp, err := client.Do(req)
//	var terr *transportx.TransportError
//	if errors.As(err, &terr) {
//	    client.MarkH3Failed()
//	    resp, err = client.Do(req) // next attempt uses h2
//	}
package transportx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"github.com/sony/gobreaker"

	"go.eggybyte.com/duplex/core/log"
)

// TransportError reports that a connection could not be established on the
// selected protocol. It is recoverable: the caller marks the h3 failure and
// reissues the request, which then uses the fallback protocol. It is never
// an application-level RPC error.
type TransportError struct {
	Protocol Protocol // Protocol the failed attempt used
	Err      error    // Underlying connection error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Protocol, e.Err)
}

// Unwrap returns the underlying connection error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client is a dual-protocol HTTP client whose active protocol is chosen by
// a Selector. Safe for concurrent use.
type Client struct {
	cfg      ClientConfig
	logger   log.Logger
	selector *Selector
	h2       *http.Client
	h3       *http.Client
	h3rt     *http3.Transport
	breaker  *gobreaker.CircuitBreaker
	closed   sync.Once
}

// NewClient creates a Client from the given configuration. Zero-valued
// timeouts are defaulted; the configuration is validated before any
// transport is built.
func NewClient(cfg ClientConfig, logger log.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Discard()
	}

	tlsCfg := cfg.tlsConfig()

	h2Transport := &http.Transport{
		TLSClientConfig:     tlsCfg.Clone(),
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	h3Transport := &http3.Transport{
		TLSClientConfig: tlsCfg.Clone(),
		QUICConfig: &quic.Config{
			HandshakeIdleTimeout: cfg.H3Timeout,
		},
	}

	c := &Client{
		cfg:      cfg,
		logger:   logger,
		selector: NewSelector(cfg.H3Enabled, cfg.H3RetryInterval),
		h2:       &http.Client{Transport: h2Transport, Timeout: cfg.RequestTimeout},
		h3:       &http.Client{Transport: h3Transport, Timeout: cfg.RequestTimeout},
		h3rt:     h3Transport,
	}

	if cfg.BreakerEnabled {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "transportx",
			Timeout: 60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > cfg.BreakerThreshold
			},
		})
	}

	return c, nil
}

// Do executes the request on the currently selected protocol. It does not
// retry: a *TransportError tells the caller the connection attempt failed
// and that future attempts may use the other protocol once MarkH3Failed has
// been called. Context cancellation and deadline errors pass through
// unclassified so they are not mistaken for protocol outages.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	proto := c.selector.Protocol()
	hc := c.h2
	if proto == ProtocolH3 {
		hc = c.h3
	}

	resp, err := c.execute(hc, req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &TransportError{Protocol: proto, Err: err}
	}
	return resp, nil
}

func (c *Client) execute(hc *http.Client, req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return hc.Do(req)
	}
	result, err := c.breaker.Execute(func() (any, error) {
		return hc.Do(req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}

// HTTPClient returns the *http.Client for the currently selected protocol.
// Suitable for passing to Connect client constructors.
func (c *Client) HTTPClient() *http.Client {
	if c.selector.Protocol() == ProtocolH3 {
		return c.h3
	}
	return c.h2
}

// Protocol returns the currently active protocol name ("h3" or "h2").
func (c *Client) Protocol() Protocol {
	return c.selector.Protocol()
}

// MarkH3Failed records that an HTTP/3 connection attempt failed, deferring
// to HTTP/2 until the retry interval elapses.
func (c *Client) MarkH3Failed() {
	if c.selector.MarkFailed() {
		c.logger.Warn("HTTP/3 failed, falling back to HTTP/2",
			log.Dur("retry_interval", c.cfg.H3RetryInterval))
	}
}

// ResetH3 clears the recorded HTTP/3 failure after a verified successful
// HTTP/3 connection. The selector never clears itself.
func (c *Client) ResetH3() {
	if c.selector.Reset() {
		c.logger.Info("HTTP/3 restored")
	}
}

// Close releases transport resources. Safe to call once, including on a
// client that never issued a request.
func (c *Client) Close() error {
	var err error
	c.closed.Do(func() {
		c.h2.CloseIdleConnections()
		err = c.h3rt.Close()
	})
	return err
}

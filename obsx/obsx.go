// Package obsx provides Prometheus-backed metrics for the transport stack.
//
// Overview:
//   - Responsibility: Bootstrap an OpenTelemetry meter provider with
//     Prometheus export and expose the RPC request instruments consumed by
//     the interceptor chain
//   - Key Types: Options for configuration, Provider for lifecycle,
//     RPCMetrics for per-request instruments
//   - Concurrency Model: Provider and RPCMetrics are safe for concurrent use
//   - Error Semantics: Constructors return errors for initialization
//     failures; recording never fails
//
// Usage:
//
//	provider, err := obsx.NewProvider(ctx, obsx.Options{
//	  ServiceName:    "gateway",
//	  ServiceVersion: "1.4.0",
//	})
//	rpc, _ := provider.NewRPCMetrics()
//	interceptors := connectx.DefaultInterceptors(connectx.Options{
//	  Metrics: rpc.Hooks(),
//	})
//	mux.Handle("/metrics", provider.PrometheusHandler())
//	defer provider.Shutdown(ctx)
package obsx

import (
	"context"
	"net/http"

	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"go.eggybyte.com/duplex/connectx"
	"go.eggybyte.com/duplex/obsx/internal"
)

// Options holds configuration for the metrics provider.
type Options struct {
	ServiceName    string            // Service name for metrics (required)
	ServiceVersion string            // Service version
	ResourceAttrs  map[string]string // Additional resource attributes

	// SetGlobal installs the provider as the process-wide OpenTelemetry
	// meter provider. Leave false in tests to avoid cross-test bleed.
	SetGlobal bool
}

// Provider manages an OpenTelemetry meter provider with Prometheus export.
// It must be shut down when no longer needed.
type Provider struct {
	impl *internal.Provider
}

// NewProvider creates a metrics provider with Prometheus export.
func NewProvider(ctx context.Context, opts Options) (*Provider, error) {
	impl, err := internal.NewProvider(ctx, internal.ProviderOptions{
		ServiceName:    opts.ServiceName,
		ServiceVersion: opts.ServiceVersion,
		ResourceAttrs:  opts.ResourceAttrs,
		SetGlobal:      opts.SetGlobal,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{impl: impl}, nil
}

// MeterProvider returns the underlying OpenTelemetry meter provider.
func (p *Provider) MeterProvider() *metric.MeterProvider {
	return p.impl.MeterProvider
}

// Meter returns a named Meter for creating custom instruments.
func (p *Provider) Meter(name string) api.Meter {
	return p.impl.MeterProvider.Meter(name)
}

// PrometheusHandler returns the HTTP handler serving the scrape endpoint.
// Metrics are collected on demand when the endpoint is scraped.
func (p *Provider) PrometheusHandler() http.Handler {
	return p.impl.PrometheusHandler()
}

// EnableRuntimeMetrics starts collecting Go runtime metrics (goroutines,
// GC cycles, heap and stack bytes). Safe to call more than once.
func (p *Provider) EnableRuntimeMetrics(ctx context.Context) error {
	return internal.EnableRuntimeMetrics(ctx, p.impl.MeterProvider)
}

// NewRPCMetrics creates the per-request RPC instruments recorded by the
// interceptor chain.
func (p *Provider) NewRPCMetrics() (*RPCMetrics, error) {
	impl, err := internal.NewRPCMetrics(p.impl.MeterProvider)
	if err != nil {
		return nil, err
	}
	return &RPCMetrics{impl: impl}, nil
}

// Shutdown gracefully shuts down the provider, flushing pending metrics.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.impl.Shutdown(ctx)
}

// RPCMetrics exposes the rpc_requests_total counter and
// rpc_request_duration_seconds histogram.
type RPCMetrics struct {
	impl *internal.RPCMetrics
}

// Count records one completed request with its outcome code.
func (m *RPCMetrics) Count(procedure, protocol, code string) {
	m.impl.Count(procedure, protocol, code)
}

// Duration records the elapsed seconds of one request.
func (m *RPCMetrics) Duration(procedure, protocol string, seconds float64) {
	m.impl.Duration(procedure, protocol, seconds)
}

// Hooks adapts the instruments to the interceptor chain's callback form.
func (m *RPCMetrics) Hooks() connectx.MetricsHooks {
	return connectx.MetricsHooks{
		Count:    m.Count,
		Duration: m.Duration,
	}
}

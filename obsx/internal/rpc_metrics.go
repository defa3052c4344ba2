package internal

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// RPCMetrics holds the per-request instruments recorded by the interceptor
// chain's metrics stage.
type RPCMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewRPCMetrics creates the RPC request counter and duration histogram.
func NewRPCMetrics(meterProvider *sdkmetric.MeterProvider) (*RPCMetrics, error) {
	meter := meterProvider.Meter("go.eggybyte.com/duplex/obsx/rpc")

	requests, err := meter.Int64Counter(
		"rpc_requests_total",
		metric.WithDescription("Total RPC requests by procedure, protocol, and outcome code"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"rpc_request_duration_seconds",
		metric.WithDescription("RPC request duration in seconds by procedure and protocol"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &RPCMetrics{requests: requests, duration: duration}, nil
}

// Count records one completed request.
func (m *RPCMetrics) Count(procedure, protocol, code string) {
	m.requests.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("procedure", procedure),
		attribute.String("protocol", protocol),
		attribute.String("code", code),
	))
}

// Duration records the elapsed wall time of one request.
func (m *RPCMetrics) Duration(procedure, protocol string, seconds float64) {
	m.duration.Record(context.Background(), seconds, metric.WithAttributes(
		attribute.String("procedure", procedure),
		attribute.String("protocol", protocol),
	))
}

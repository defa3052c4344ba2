// Package connectx provides the unified Connect interceptor stack: panic
// recovery, request logging, correlation-id propagation, bearer-token
// authentication, and metrics hooks.
//
// Overview:
//   - Responsibility: Compose cross-cutting request stages in a fixed,
//     failure-safe order around every unary handler
//   - Key Types: Options for configuration, TokenValidator for the external
//     authentication collaborator, MetricsHooks for measurement callbacks
//   - Concurrency Model: Interceptors are composed once at server
//     construction and are safe for concurrent use
//   - Error Semantics: Stages short-circuit with typed Connect errors; panics
//     are converted to CodeInternal and never re-raised
//
// Usage:
//
//	interceptors := connectx.DefaultInterceptors(connectx.Options{
//	  Logger:           logger,
//	  Authenticator:    validator,
//	  PublicProcedures: []string{"/health.v1.Health/Check"},
//	})
//	path, handler := foov1connect.NewFooServiceHandler(svc,
//	  connect.WithInterceptors(interceptors...))
package connectx

import (
	"connectrpc.com/connect"
	"github.com/google/uuid"

	"go.eggybyte.com/duplex/connectx/internal"
	"go.eggybyte.com/duplex/core/log"
)

// CorrelationHeader is the request and response header carrying the
// correlation id.
const CorrelationHeader = "X-Correlation-ID"

// TokenValidator is the external authentication collaborator: it validates a
// raw bearer token and returns the claims it carries.
type TokenValidator = internal.TokenValidator

// MetricsHooks are caller-supplied measurement callbacks. The interceptor
// chain holds no metrics backend of its own; it only forwards observations.
type MetricsHooks struct {
	// Count is invoked once per request with the procedure, transport
	// protocol, and outcome code ("ok" or a Connect code string).
	Count func(procedure, protocol, code string)
	// Duration is invoked once per request with the elapsed seconds.
	Duration func(procedure, protocol string, seconds float64)
}

// Options holds configuration for the interceptor stack.
type Options struct {
	Logger log.Logger // Logger for recovery and request logging

	// GenerateID produces correlation ids for requests that arrive without
	// one. Defaults to UUIDv4.
	GenerateID func() string

	// Authenticator validates bearer tokens. When nil the authentication
	// stage is omitted and every procedure is public.
	Authenticator TokenValidator

	// PublicProcedures lists procedures reachable without credentials
	// (e.g., "/health.v1.Health/Check").
	PublicProcedures []string

	// Metrics receives per-request measurements. When both hooks are nil
	// the metrics stage is omitted.
	Metrics MetricsHooks
}

// DefaultInterceptors returns the interceptor stack in its canonical
// outer-to-inner order:
//
//  1. Recovery — converts panics into CodeInternal, keeps the process alive
//  2. Logging — procedure, protocol, duration, outcome (canceled requests
//     are logged as canceled, not completed)
//  3. Correlation — reads or generates X-Correlation-ID, injects it into the
//     context, stamps it on the response
//  4. Authentication — rejects non-public procedures without a valid bearer
//     credential before the handler runs
//  5. Metrics — forwards count and duration observations to caller hooks
//
// The order is part of the contract: recovery must contain every other
// stage, logging observes auth failures, and auth failures stay correlated.
func DefaultInterceptors(opts Options) []connect.Interceptor {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.GenerateID == nil {
		opts.GenerateID = uuid.NewString
	}

	public := make(map[string]bool, len(opts.PublicProcedures))
	for _, p := range opts.PublicProcedures {
		public[p] = true
	}

	interceptors := []connect.Interceptor{
		connect.UnaryInterceptorFunc(internal.RecoveryInterceptor(opts.Logger)),
		connect.UnaryInterceptorFunc(internal.LoggingInterceptor(opts.Logger)),
		connect.UnaryInterceptorFunc(internal.CorrelationInterceptor(CorrelationHeader, opts.GenerateID)),
	}

	if opts.Authenticator != nil {
		interceptors = append(interceptors,
			connect.UnaryInterceptorFunc(internal.AuthInterceptor(opts.Authenticator, public, opts.Logger)))
	}

	if opts.Metrics.Count != nil || opts.Metrics.Duration != nil {
		interceptors = append(interceptors,
			connect.UnaryInterceptorFunc(internal.MetricsInterceptor(opts.Metrics.Count, opts.Metrics.Duration)))
	}

	return interceptors
}

// Package healthx tracks named-service serving status for liveness and
// readiness probes.
//
// Overview:
//   - Responsibility: Concurrent health status registry consumed by the RPC
//     health check and by plain HTTP probe endpoints
//   - Key Types: Registry for the status table, Status for serving state
//   - Concurrency Model: Registry is safe for concurrent reads and writes
//   - Error Semantics: CheckHandler returns CodeUnavailable when the overall
//     status is anything but serving
//
// The registry is constructed once at startup and passed by reference to
// every component that reads or mutates it; there is no package-level
// singleton.
//
// Usage:
//
//	reg := healthx.New()
//	reg.SetStatus("db", healthx.StatusNotServing)
//	mux.Handle("/healthz", reg.Handler())
package healthx

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"connectrpc.com/connect"
)

// Status is the serving status of a named service.
type Status int

const (
	// StatusServing means the service accepts traffic.
	StatusServing Status = 1
	// StatusNotServing means the service is temporarily rejecting traffic.
	StatusNotServing Status = 2
)

// String returns the probe-facing name of the status.
func (s Status) String() string {
	switch s {
	case StatusServing:
		return "serving"
	case StatusNotServing:
		return "not_serving"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// OverallService is the registry key gating overall server health.
const OverallService = ""

// Registry is a concurrent table of named service -> serving status.
// The overall (empty-name) entry always exists.
type Registry struct {
	mu       sync.RWMutex
	statuses map[string]Status
}

// New creates a Registry with the overall service marked as serving.
func New() *Registry {
	return &Registry{
		statuses: map[string]Status{OverallService: StatusServing},
	}
}

// SetStatus upserts the serving status of a named service. Safe to call
// concurrently with reads and other writes.
func (r *Registry) SetStatus(service string, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[service] = status
}

// GetStatus returns the serving status of a named service. found is false
// for names that were never set; only the overall entry has a default.
func (r *Registry) GetStatus(service string) (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.statuses[service]
	return s, ok
}

// CheckHandler returns a Connect-compatible handler that gates on the
// overall entry only: it fails with CodeUnavailable unless that status is
// exactly serving. Named entries do not affect the result.
func (r *Registry) CheckHandler() func(context.Context, *connect.Request[any]) (*connect.Response[any], error) {
	return func(_ context.Context, _ *connect.Request[any]) (*connect.Response[any], error) {
		status, ok := r.GetStatus(OverallService)
		if !ok || status != StatusServing {
			return nil, connect.NewError(connect.CodeUnavailable, fmt.Errorf("service is %s", status))
		}
		return connect.NewResponse[any](nil), nil
	}
}

// Handler returns an HTTP handler answering 200 when the overall status is
// serving and 503 otherwise. Suitable for a /healthz or /ready probe path.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		status, ok := r.GetStatus(OverallService)
		if !ok || status != StatusServing {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":%q}`, status.String())
			return
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"serving"}`)
	})
}

// Register mounts probe endpoints on the given mux: /health and /ready gate
// on the overall status, /live always answers 200.
func (r *Registry) Register(mux *http.ServeMux) {
	mux.Handle("/health", r.Handler())
	mux.Handle("/ready", r.Handler())
	mux.HandleFunc("/live", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"alive"}`)
	})
}

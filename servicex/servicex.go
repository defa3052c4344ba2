// Package servicex boots a complete dual-protocol Connect service in one
// call: structured logging, Prometheus metrics, health registry, the full
// interceptor stack, and the HTTP/2 + HTTP/3 listeners.
//
// Overview:
//   - Responsibility: Wire the transport kit's packages together and manage
//     the service lifecycle from startup through signal-driven shutdown
//   - Key Types: Options for configuration, App handed to the registration
//     callback for binding handlers
//   - Concurrency Model: Run blocks the calling goroutine until shutdown
//   - Error Semantics: Initialization failures abort Run; listener failures
//     trigger graceful shutdown
//
// Usage:
//
//	err := servicex.Run(ctx, servicex.Options{
//	  ServiceName: "echo",
//	  Register: func(app *servicex.App) error {
//	    path, handler := echov1connect.NewEchoServiceHandler(svc, app.Interceptors())
//	    app.Bind(path, handler)
//	    return nil
//	  },
//	})
package servicex

import (
	"net/http"
	"time"

	"connectrpc.com/connect"

	"go.eggybyte.com/duplex/connectx"
	"go.eggybyte.com/duplex/core/log"
	"go.eggybyte.com/duplex/healthx"
	"go.eggybyte.com/duplex/serverx"
)

// Options holds configuration for service initialization.
type Options struct {
	// Service identification, used as metric resource attributes.
	ServiceName    string
	ServiceVersion string

	// Server carries the listener configuration. The zero value is replaced
	// by serverx.DefaultConfig with HTTP/3 disabled, since no TLS config is
	// available.
	Server serverx.Config

	// Register binds the service's Connect handlers onto the app.
	Register func(app *App) error

	// Authenticator enables the bearer-token stage of the interceptor
	// chain. Nil leaves every procedure public.
	Authenticator connectx.TokenValidator

	// PublicProcedures bypass authentication (e.g., health checks).
	PublicProcedures []string

	// EnableMetrics mounts /metrics and records per-request instruments.
	EnableMetrics bool

	// ShutdownTimeout bounds graceful shutdown. Default 15s.
	ShutdownTimeout time.Duration

	// Logger defaults to a logfmt logger on stderr.
	Logger log.Logger
}

func (o *Options) validate() error {
	if o.ServiceName == "" {
		o.ServiceName = "app"
	}
	if o.ServiceVersion == "" {
		o.ServiceVersion = "0.0.0"
	}
	if o.ShutdownTimeout == 0 {
		o.ShutdownTimeout = 15 * time.Second
	}
	return nil
}

// App is handed to the registration callback for binding handlers and
// reaching the shared infrastructure.
type App struct {
	logger       log.Logger
	health       *healthx.Registry
	server       *serverx.Server
	interceptors []connect.Interceptor
}

// Logger returns the service logger.
func (a *App) Logger() log.Logger { return a.logger }

// Health returns the health registry so components can report named status.
func (a *App) Health() *healthx.Registry { return a.health }

// Mux returns the HTTP mux for non-Connect endpoints.
func (a *App) Mux() *http.ServeMux { return a.server.Mux() }

// Interceptors returns the composed stack as a Connect handler option.
func (a *App) Interceptors() connect.Option {
	return connect.WithInterceptors(a.interceptors...)
}

// Bind mounts a Connect handler at its procedure path prefix.
func (a *App) Bind(path string, handler http.Handler) {
	a.server.Bind(path, handler)
}

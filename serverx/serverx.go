// Package serverx runs a dual-protocol Connect server: an HTTP/2 listener
// over TCP and an HTTP/3 listener over QUIC sharing one mux.
//
// Overview:
//   - Responsibility: Listener lifecycle (start, fatal-error propagation,
//     graceful shutdown) for both transports, probe endpoint mounting, and
//     interceptor-aware handler binding
//   - Key Types: Config for listener settings, Server for the lifecycle
//   - Concurrency Model: Start blocks the calling goroutine; listeners run
//     in their own goroutines
//   - Error Semantics: Start returns the first fatal listener error or the
//     joined shutdown errors after ctx cancellation
//
// Usage:
//
//	srv, err := serverx.New(cfg, logger)
//	srv.Bind(path, handler)
//	srv.MountHealth(registry)
//	err = srv.Start(ctx) // blocks until ctx is done
package serverx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	"github.com/quic-go/quic-go/http3"

	"go.eggybyte.com/duplex/core/log"
	"go.eggybyte.com/duplex/healthx"
)

// Server runs HTTP/2 and HTTP/3 listeners sharing the same mux.
type Server struct {
	cfg    Config
	mux    *http.ServeMux
	logger log.Logger
	health *healthx.Registry

	mu sync.Mutex
	h2 *http.Server
	h3 *http3.Server
}

// New creates a Server. A nil logger discards output.
func New(cfg Config, logger log.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Server{
		cfg:    cfg,
		mux:    http.NewServeMux(),
		logger: logger,
	}, nil
}

// Mux returns the underlying ServeMux for handlers that need it directly.
func (s *Server) Mux() *http.ServeMux {
	return s.mux
}

// Interceptors returns the configured interceptor stack as a handler
// option, for passing to generated Connect constructors.
func (s *Server) Interceptors() connect.Option {
	return connect.WithInterceptors(s.cfg.Interceptors...)
}

// Bind mounts a Connect handler at its procedure path prefix.
func (s *Server) Bind(path string, handler http.Handler) {
	s.mux.Handle(path, handler)
}

// MountHealth mounts the registry's probe endpoints and ties the overall
// status to the server lifecycle: serving once Start runs, not serving as
// soon as shutdown begins.
func (s *Server) MountHealth(registry *healthx.Registry) {
	s.health = registry
	registry.Register(s.mux)
}

// Start launches the enabled listeners and blocks until ctx is canceled or
// a listener fails fatally, then shuts down within GracePeriod.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.health != nil {
		s.health.SetStatus(healthx.OverallService, healthx.StatusServing)
	}

	errc := make(chan error, 2)

	if s.cfg.H2Enabled {
		s.h2 = &http.Server{
			Addr:    s.cfg.H2Addr,
			Handler: s.mux,
		}
		if s.cfg.TLSConfig != nil {
			s.h2.TLSConfig = s.cfg.TLSConfig.Clone()
		}
		go func() {
			s.logger.Info("http/2 listener starting", log.Str("addr", s.cfg.H2Addr))
			var err error
			if s.cfg.TLSConfig != nil {
				err = s.h2.ListenAndServeTLS("", "")
			} else {
				err = s.h2.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("h2 listener: %w", err)
			}
		}()
	}

	if s.cfg.H3Enabled {
		tlsCfg := s.cfg.TLSConfig.Clone()
		tlsCfg.NextProtos = []string{"h3"}

		s.h3 = &http3.Server{
			Addr:      s.cfg.H3Addr,
			Handler:   s.mux,
			TLSConfig: tlsCfg,
		}
		go func() {
			s.logger.Info("http/3 listener starting", log.Str("addr", s.cfg.H3Addr))
			if err := s.h3.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("h3 listener: %w", err)
			}
		}()
	}

	s.mu.Unlock()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errc:
		s.logger.Error(err, "listener failed, shutting down")
	}

	return s.shutdown()
}

func (s *Server) shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.health != nil {
		s.health.SetStatus(healthx.OverallService, healthx.StatusNotServing)
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GracePeriod)
	defer cancel()

	var errs []error
	if s.h2 != nil {
		s.logger.Info("shutting down http/2 listener")
		if err := s.h2.Shutdown(shutCtx); err != nil {
			errs = append(errs, fmt.Errorf("h2 shutdown: %w", err))
		}
	}
	if s.h3 != nil {
		s.logger.Info("shutting down http/3 listener")
		if err := s.h3.Close(); err != nil {
			errs = append(errs, fmt.Errorf("h3 shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

package servicex

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"go.eggybyte.com/duplex/connectx"
	"go.eggybyte.com/duplex/healthx"
	"go.eggybyte.com/duplex/logx"
	"go.eggybyte.com/duplex/obsx"
	"go.eggybyte.com/duplex/serverx"
)

// Run initializes the service and blocks until the context is canceled or a
// SIGINT/SIGTERM arrives, then shuts everything down within ShutdownTimeout.
func Run(ctx context.Context, opts Options) error {
	if err := opts.validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = logx.New()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverCfg := opts.Server
	if serverCfg.H2Addr == "" && serverCfg.H3Addr == "" {
		serverCfg = serverx.DefaultConfig()
		serverCfg.H3Enabled = false // no TLS config to drive QUIC
	}
	serverCfg.GracePeriod = opts.ShutdownTimeout

	health := healthx.New()

	var provider *obsx.Provider
	chainOpts := connectx.Options{
		Logger:           opts.Logger,
		Authenticator:    opts.Authenticator,
		PublicProcedures: opts.PublicProcedures,
	}
	if opts.EnableMetrics {
		var err error
		provider, err = obsx.NewProvider(ctx, obsx.Options{
			ServiceName:    opts.ServiceName,
			ServiceVersion: opts.ServiceVersion,
		})
		if err != nil {
			return fmt.Errorf("metrics initialization failed: %w", err)
		}
		rpc, err := provider.NewRPCMetrics()
		if err != nil {
			return fmt.Errorf("metrics initialization failed: %w", err)
		}
		chainOpts.Metrics = rpc.Hooks()
	}

	serverCfg.Interceptors = connectx.DefaultInterceptors(chainOpts)

	server, err := serverx.New(serverCfg, opts.Logger)
	if err != nil {
		return fmt.Errorf("server initialization failed: %w", err)
	}
	server.MountHealth(health)
	if provider != nil {
		server.Mux().Handle("/metrics", provider.PrometheusHandler())
	}

	app := &App{
		logger:       opts.Logger,
		health:       health,
		server:       server,
		interceptors: serverCfg.Interceptors,
	}
	if opts.Register != nil {
		if err := opts.Register(app); err != nil {
			return fmt.Errorf("service registration failed: %w", err)
		}
	}

	opts.Logger.Info("service starting",
		logx.Str("service_name", opts.ServiceName),
		logx.Str("service_version", opts.ServiceVersion))

	runErr := server.Start(ctx)

	if provider != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
		if err := provider.Shutdown(shutdownCtx); err != nil {
			opts.Logger.Error(err, "metrics provider shutdown failed")
		}
		cancel()
	}

	if runErr != nil {
		return runErr
	}
	opts.Logger.Info("service stopped")
	return nil
}

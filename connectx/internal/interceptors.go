// Package internal holds the individual interceptor stage factories composed
// by connectx. Each factory returns a function compatible with
// connect.UnaryInterceptorFunc.
package internal

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"connectrpc.com/connect"

	"go.eggybyte.com/duplex/core/identity"
	"go.eggybyte.com/duplex/core/log"
)

// TokenValidator validates a raw bearer token and returns the claims it
// carries. Implementations must be safe for concurrent use.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*identity.Claims, error)
}

// RecoveryInterceptor converts handler panics into CodeInternal errors so a
// single request cannot take the process down. The panic value and stack are
// logged; the client only sees a generic message.
func RecoveryInterceptor(logger log.Logger) func(connect.UnaryFunc) connect.UnaryFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (resp connect.AnyResponse, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error(fmt.Errorf("panic: %v", r), "recovered from handler panic",
						log.Str("procedure", req.Spec().Procedure),
						log.Str("stack", string(debug.Stack())),
					)
					err = connect.NewError(connect.CodeInternal, errors.New("internal server error"))
				}
			}()
			return next(ctx, req)
		}
	}
}

// LoggingInterceptor emits one structured line per request with procedure,
// transport protocol, duration, and outcome. Requests that end because the
// caller went away are logged as canceled rather than as handler failures.
func LoggingInterceptor(logger log.Logger) func(connect.UnaryFunc) connect.UnaryFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			elapsed := time.Since(start)

			fields := []any{
				log.Str("procedure", req.Spec().Procedure),
				log.Str("protocol", req.Peer().Protocol),
				log.Dur("duration", elapsed),
			}

			switch {
			case err == nil:
				logger.Info("request completed", fields...)
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded),
				connect.CodeOf(err) == connect.CodeCanceled, connect.CodeOf(err) == connect.CodeDeadlineExceeded:
				logger.Warn("request canceled", fields...)
			default:
				fields = append(fields, log.Str("code", connect.CodeOf(err).String()))
				logger.Error(err, "request failed", fields...)
			}
			return resp, err
		}
	}
}

// CorrelationInterceptor reads the correlation id header, generating one when
// absent, stores it in the request context, and stamps it on the response so
// callers can join client and server logs. Error responses carry the id in
// their metadata.
func CorrelationInterceptor(header string, generateID func() string) func(connect.UnaryFunc) connect.UnaryFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			id := req.Header().Get(header)
			if id == "" {
				id = generateID()
			}

			ctx = identity.WithMeta(ctx, &identity.RequestMeta{
				CorrelationID: id,
				Protocol:      req.Peer().Protocol,
				UserAgent:     req.Header().Get("User-Agent"),
			})

			resp, err := next(ctx, req)
			if err != nil {
				var cerr *connect.Error
				if !errors.As(err, &cerr) {
					cerr = connect.NewError(connect.CodeOf(err), err)
					err = cerr
				}
				cerr.Meta().Set(header, id)
				return resp, err
			}
			resp.Header().Set(header, id)
			return resp, nil
		}
	}
}

// AuthInterceptor enforces bearer-token authentication. Procedures listed in
// public bypass the check; everything else must present a well-formed
// Authorization header whose token the validator accepts. Validated claims
// are placed in the context for the handler.
func AuthInterceptor(validator TokenValidator, public map[string]bool, logger log.Logger) func(connect.UnaryFunc) connect.UnaryFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			procedure := req.Spec().Procedure
			if public[procedure] {
				return next(ctx, req)
			}

			auth := req.Header().Get("Authorization")
			if len(auth) < 8 || auth[:7] != "Bearer " {
				return nil, connect.NewError(connect.CodeUnauthenticated,
					errors.New("missing or malformed authorization header"))
			}

			token := strings.TrimSpace(auth[7:])
			claims, err := validator.ValidateToken(ctx, token)
			if err != nil {
				logger.Warn("token rejected",
					log.Str("procedure", procedure), log.Str("reason", err.Error()))
				return nil, connect.NewError(connect.CodeUnauthenticated,
					errors.New("invalid credentials"))
			}
			if err := claims.Validate(); err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated,
					errors.New("invalid credentials"))
			}

			return next(identity.WithClaims(ctx, claims), req)
		}
	}
}

// MetricsInterceptor forwards one count and one duration observation per
// request to the supplied hooks. Either hook may be nil.
func MetricsInterceptor(count func(procedure, protocol, code string), duration func(procedure, protocol string, seconds float64)) func(connect.UnaryFunc) connect.UnaryFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			elapsed := time.Since(start)

			procedure := req.Spec().Procedure
			protocol := req.Peer().Protocol
			if count != nil {
				code := "ok"
				if err != nil {
					code = connect.CodeOf(err).String()
				}
				count(procedure, protocol, code)
			}
			if duration != nil {
				duration(procedure, protocol, elapsed.Seconds())
			}
			return resp, err
		}
	}
}

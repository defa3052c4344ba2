package connectx

import (
	"context"
	"errors"
	"testing"
	"time"

	"connectrpc.com/connect"

	"go.eggybyte.com/duplex/core/identity"
)

// compose applies the interceptor slice the way connect.WithInterceptors
// does: the first interceptor ends up outermost.
func compose(interceptors []connect.Interceptor, handler connect.UnaryFunc) connect.UnaryFunc {
	next := handler
	for i := len(interceptors) - 1; i >= 0; i-- {
		next = interceptors[i].WrapUnary(next)
	}
	return next
}

type allowAllValidator struct{}

func (allowAllValidator) ValidateToken(ctx context.Context, token string) (*identity.Claims, error) {
	now := time.Now()
	return &identity.Claims{
		Subject:  "svc",
		Issuer:   "test",
		Audience: []string{"duplex"},
		IssuedAt: now,
		Expiry:   now.Add(time.Hour),
	}, nil
}

func TestDefaultInterceptorsStageCount(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want int
	}{
		{"base stack", Options{}, 3},
		{"with auth", Options{Authenticator: allowAllValidator{}}, 4},
		{"with metrics", Options{Metrics: MetricsHooks{Count: func(string, string, string) {}}}, 4},
		{
			"full stack",
			Options{
				Authenticator: allowAllValidator{},
				Metrics:       MetricsHooks{Duration: func(string, string, float64) {}},
			},
			5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(DefaultInterceptors(tt.opts)); got != tt.want {
				t.Errorf("len(DefaultInterceptors()) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestChainCorrelatesAuthFailures(t *testing.T) {
	// Correlation sits outside authentication, so even rejected requests
	// carry a correlation id back to the caller.
	chain := compose(DefaultInterceptors(Options{
		GenerateID:    func() string { return "corr-42" },
		Authenticator: rejectAllValidator{},
	}), func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		t.Fatal("handler must not run for unauthenticated requests")
		return nil, nil
	})

	_, err := chain(context.Background(), connect.NewRequest(&struct{}{}))
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Fatalf("CodeOf(err) = %v, want CodeUnauthenticated", connect.CodeOf(err))
	}

	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("error %v is not a *connect.Error", err)
	}
	if got := cerr.Meta().Get(CorrelationHeader); got != "corr-42" {
		t.Errorf("error meta %s = %q, want corr-42", CorrelationHeader, got)
	}
}

type rejectAllValidator struct{}

func (rejectAllValidator) ValidateToken(ctx context.Context, token string) (*identity.Claims, error) {
	return nil, errors.New("rejected")
}

func TestChainRecoversHandlerPanic(t *testing.T) {
	chain := compose(DefaultInterceptors(Options{}), func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		panic("handler bug")
	})

	_, err := chain(context.Background(), connect.NewRequest(&struct{}{}))
	if connect.CodeOf(err) != connect.CodeInternal {
		t.Errorf("CodeOf(err) = %v, want CodeInternal", connect.CodeOf(err))
	}
}

func TestChainMetricsSkippedOnAuthRejection(t *testing.T) {
	// Metrics is the innermost stage; requests rejected by authentication
	// never reach it.
	counted := 0
	chain := compose(DefaultInterceptors(Options{
		Authenticator: rejectAllValidator{},
		Metrics:       MetricsHooks{Count: func(string, string, string) { counted++ }},
	}), func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return connect.NewResponse(&struct{}{}), nil
	})

	chain(context.Background(), connect.NewRequest(&struct{}{}))
	if counted != 0 {
		t.Errorf("metrics count = %d for rejected request, want 0", counted)
	}
}

func TestChainFullSuccessPath(t *testing.T) {
	var gotCode string
	var handlerClaims *identity.Claims

	chain := compose(DefaultInterceptors(Options{
		GenerateID:       func() string { return "full-1" },
		Authenticator:    allowAllValidator{},
		PublicProcedures: nil,
		Metrics:          MetricsHooks{Count: func(_, _, code string) { gotCode = code }},
	}), func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		handlerClaims, _ = identity.ClaimsFrom(ctx)
		return connect.NewResponse(&struct{}{}), nil
	})

	req := connect.NewRequest(&struct{}{})
	req.Header().Set("Authorization", "Bearer any-token")
	resp, err := chain(context.Background(), req)
	if err != nil {
		t.Fatalf("chain() error = %v", err)
	}
	if handlerClaims == nil || handlerClaims.Subject != "svc" {
		t.Errorf("handler claims = %+v, want subject svc", handlerClaims)
	}
	if got := resp.Header().Get(CorrelationHeader); got != "full-1" {
		t.Errorf("response %s = %q, want full-1", CorrelationHeader, got)
	}
	if gotCode != "ok" {
		t.Errorf("metrics code = %q, want ok", gotCode)
	}
}

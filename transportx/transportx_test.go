package transportx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func h2Config() ClientConfig {
	cfg := DefaultClientConfig()
	cfg.H3Enabled = false
	return cfg
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(ClientConfig{H3Enabled: true, H3RetryInterval: time.Minute}, nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	if client.cfg.H3Timeout != 5*time.Second {
		t.Errorf("H3Timeout = %v, want 5s", client.cfg.H3Timeout)
	}
	if client.cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", client.cfg.RequestTimeout)
	}
}

func TestNewClientInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClientConfig
	}{
		{"h3 enabled without retry interval", ClientConfig{H3Enabled: true}},
		{"malformed base url", ClientConfig{BaseURL: "::not-a-url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClient(tt.cfg, nil); err == nil {
				t.Error("NewClient() should reject invalid config")
			}
		})
	}
}

func TestClientProtocol(t *testing.T) {
	h3Client, err := NewClient(DefaultClientConfig(), nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer h3Client.Close()
	if got := h3Client.Protocol(); got != ProtocolH3 {
		t.Errorf("Protocol() = %q, want %q", got, ProtocolH3)
	}

	h2Client, err := NewClient(h2Config(), nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer h2Client.Close()
	if got := h2Client.Protocol(); got != ProtocolH2 {
		t.Errorf("Protocol() = %q, want %q", got, ProtocolH2)
	}
}

func TestClientMarkAndReset(t *testing.T) {
	client, err := NewClient(DefaultClientConfig(), nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	client.MarkH3Failed()
	if got := client.Protocol(); got != ProtocolH2 {
		t.Errorf("Protocol() after MarkH3Failed = %q, want %q", got, ProtocolH2)
	}

	client.ResetH3()
	if got := client.Protocol(); got != ProtocolH3 {
		t.Errorf("Protocol() after ResetH3 = %q, want %q", got, ProtocolH3)
	}
}

func TestClientDo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	client, err := NewClient(h2Config(), nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("body = %q, want %q", body, "ok")
	}
}

func TestClientDoTransportError(t *testing.T) {
	client, err := NewClient(h2Config(), nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	// Reserved port that nothing listens on.
	req, _ := http.NewRequest(http.MethodGet, "http://127.0.0.1:1", nil)
	_, err = client.Do(req)

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("Do() error = %v, want *TransportError", err)
	}
	if terr.Protocol != ProtocolH2 {
		t.Errorf("TransportError.Protocol = %q, want %q", terr.Protocol, ProtocolH2)
	}
	if !strings.Contains(terr.Error(), "transport h2") {
		t.Errorf("Error() = %q, want transport prefix", terr.Error())
	}
}

func TestClientDoContextCancelPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client, err := NewClient(h2Config(), nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	_, err = client.Do(req)

	var terr *TransportError
	if errors.As(err, &terr) {
		t.Errorf("deadline errors must not be classified as transport errors, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestClientBreakerOpens(t *testing.T) {
	cfg := h2Config()
	cfg.BreakerEnabled = true
	cfg.BreakerThreshold = 1

	client, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	req, _ := http.NewRequest(http.MethodGet, "http://127.0.0.1:1", nil)
	for i := 0; i < 2; i++ {
		client.Do(req)
	}

	_, err = client.Do(req)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Do() with tripped breaker = %v, want ErrOpenState in chain", err)
	}
}

func TestClientCloseUnused(t *testing.T) {
	client, err := NewClient(DefaultClientConfig(), nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() on unused client = %v", err)
	}
	// Second close is a no-op.
	if err := client.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestHTTPClientFollowsSelector(t *testing.T) {
	client, err := NewClient(DefaultClientConfig(), nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	h3 := client.HTTPClient()
	client.MarkH3Failed()
	h2 := client.HTTPClient()

	if h3 == h2 {
		t.Error("HTTPClient should switch instances when the selector falls back")
	}
}

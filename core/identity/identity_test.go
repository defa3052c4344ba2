package identity

import (
	"context"
	"strings"
	"testing"
	"time"
)

func validClaims() Claims {
	now := time.Now()
	return Claims{
		Subject:  "user-123",
		Issuer:   "https://issuer.example.com",
		Audience: []string{"duplex"},
		IssuedAt: now,
		Expiry:   now.Add(time.Hour),
	}
}

func TestClaimsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Claims)
		wantErr string
	}{
		{"valid", func(c *Claims) {}, ""},
		{"missing subject", func(c *Claims) { c.Subject = "" }, "subject is required"},
		{"subject too long", func(c *Claims) { c.Subject = strings.Repeat("a", MaxSubjectLength+1) }, "maximum length"},
		{"missing issuer", func(c *Claims) { c.Issuer = "" }, "issuer is required"},
		{"no audience", func(c *Claims) { c.Audience = nil }, "at least one entry"},
		{"missing issued-at", func(c *Claims) { c.IssuedAt = time.Time{} }, "issued-at is required"},
		{"missing expiry", func(c *Claims) { c.Expiry = time.Time{} }, "expiry is required"},
		{"expiry before issued-at", func(c *Claims) { c.Expiry = c.IssuedAt.Add(-time.Second) }, "after issued-at"},
		{"expiry equals issued-at", func(c *Claims) { c.Expiry = c.IssuedAt }, "after issued-at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validClaims()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestHasRole(t *testing.T) {
	c := validClaims()
	c.Roles = []string{"admin", "operator"}

	if !c.HasRole("operator") {
		t.Error("HasRole(operator) = false, want true")
	}
	if c.HasRole("viewer") {
		t.Error("HasRole(viewer) = true, want false")
	}
}

func TestClaimsContext(t *testing.T) {
	ctx := context.Background()

	if _, ok := ClaimsFrom(ctx); ok {
		t.Error("ClaimsFrom on empty context should report absent")
	}

	c := validClaims()
	ctx = WithClaims(ctx, &c)

	got, ok := ClaimsFrom(ctx)
	if !ok {
		t.Fatal("ClaimsFrom should find injected claims")
	}
	if got.Subject != "user-123" {
		t.Errorf("Subject = %q, want %q", got.Subject, "user-123")
	}
}

func TestMetaContext(t *testing.T) {
	ctx := context.Background()

	if CorrelationIDFrom(ctx) != "" {
		t.Error("CorrelationIDFrom on empty context should be empty")
	}

	ctx = WithMeta(ctx, &RequestMeta{CorrelationID: "cid-1", Protocol: "h3"})

	meta, ok := MetaFrom(ctx)
	if !ok {
		t.Fatal("MetaFrom should find injected metadata")
	}
	if meta.Protocol != "h3" {
		t.Errorf("Protocol = %q, want %q", meta.Protocol, "h3")
	}
	if CorrelationIDFrom(ctx) != "cid-1" {
		t.Errorf("CorrelationIDFrom = %q, want %q", CorrelationIDFrom(ctx), "cid-1")
	}
}

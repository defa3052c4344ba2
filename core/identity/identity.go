// Package identity carries authenticated caller identity and request-scoped
// metadata through the call context.
//
// Overview:
//   - Responsibility: Store and retrieve validated claims and request
//     metadata (correlation id, peer info) from context
//   - Key Types: Claims for the validated token payload, RequestMeta for
//     per-request metadata
//   - Concurrency Model: All functions are safe for concurrent use
//   - Error Semantics: Lookup functions return a boolean presence flag
//
// Usage:
//
//	ctx = identity.WithClaims(ctx, claims)
//	claims, ok := identity.ClaimsFrom(ctx)
package identity

import (
	"context"
	"fmt"
	"time"
)

// MaxSubjectLength bounds the subject identifier accepted in claims.
const MaxSubjectLength = 256

// Claims is the payload extracted from a validated bearer credential.
// It is produced by an external token validator and consumed read-only.
type Claims struct {
	Subject  string    // Subject identifier (required)
	Issuer   string    // Token issuer (required)
	Audience []string  // Intended audiences (required, at least one)
	IssuedAt time.Time // Time the token was issued (required)
	Expiry   time.Time // Expiry time, strictly after IssuedAt (required)
	Scopes   []string  // OAuth 2.0 scopes granted to the token
	Roles    []string  // Application roles assigned to the subject
	Tenant   string    // Tenant identifier for multi-tenant deployments
}

// Validate checks that all required fields are present and consistent.
func (c *Claims) Validate() error {
	if c.Subject == "" {
		return fmt.Errorf("claims: subject is required")
	}
	if len(c.Subject) > MaxSubjectLength {
		return fmt.Errorf("claims: subject exceeds maximum length of %d", MaxSubjectLength)
	}
	if c.Issuer == "" {
		return fmt.Errorf("claims: issuer is required")
	}
	if len(c.Audience) == 0 {
		return fmt.Errorf("claims: audience must contain at least one entry")
	}
	if c.IssuedAt.IsZero() {
		return fmt.Errorf("claims: issued-at is required")
	}
	if c.Expiry.IsZero() {
		return fmt.Errorf("claims: expiry is required")
	}
	if !c.Expiry.After(c.IssuedAt) {
		return fmt.Errorf("claims: expiry must be after issued-at")
	}
	return nil
}

// HasRole reports whether the claims carry the given role.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RequestMeta is per-request metadata injected by the interceptor chain.
type RequestMeta struct {
	CorrelationID string // Correlation id propagated across the request
	Protocol      string // Transport protocol the request arrived on
	UserAgent     string // Client user agent string
}

type claimsKey struct{}
type metaKey struct{}

// WithClaims returns a context carrying the validated claims.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFrom retrieves validated claims from the context.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// WithMeta returns a context carrying the request metadata.
func WithMeta(ctx context.Context, m *RequestMeta) context.Context {
	return context.WithValue(ctx, metaKey{}, m)
}

// MetaFrom retrieves request metadata from the context.
func MetaFrom(ctx context.Context) (*RequestMeta, bool) {
	m, ok := ctx.Value(metaKey{}).(*RequestMeta)
	return m, ok
}

// CorrelationIDFrom returns the correlation id from the context, or the
// empty string when none was injected.
func CorrelationIDFrom(ctx context.Context) string {
	if m, ok := MetaFrom(ctx); ok {
		return m.CorrelationID
	}
	return ""
}

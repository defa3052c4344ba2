package transportx

import (
	"sync"
	"time"
)

// Protocol names the wire protocol a connection attempt should use.
type Protocol string

const (
	// ProtocolH3 is the preferred protocol: HTTP/3 over QUIC.
	ProtocolH3 Protocol = "h3"
	// ProtocolH2 is the fallback protocol: HTTP/2 over TCP.
	ProtocolH2 Protocol = "h2"
)

// Selector decides, per connection attempt, whether to try HTTP/3 or go
// straight to HTTP/2, and recovers optimistically after a cool-down.
//
// A recorded failure defers to h2 until retryInterval has elapsed since the
// first failure of the window; the selector never clears the failure itself.
// Callers must call Reset after a verified h3 success, otherwise the next
// failure report simply starts a new fallback window.
//
// The selector is advisory: concurrent callers may observe either protocol
// during a transition. All operations are mutex-guarded and never block on
// I/O.
type Selector struct {
	mu            sync.RWMutex
	enabled       bool
	retryInterval time.Duration
	failedAt      time.Time

	now func() time.Time // overridable in tests
}

// NewSelector creates a Selector. When enabled is false, Protocol always
// reports h2.
func NewSelector(enabled bool, retryInterval time.Duration) *Selector {
	return &Selector{
		enabled:       enabled,
		retryInterval: retryInterval,
		now:           time.Now,
	}
}

// Protocol returns the protocol the next connection attempt should use:
// h2 when h3 is disabled or a failure is recorded and its cool-down has not
// elapsed, h3 otherwise. A zero retry interval recovers immediately.
func (s *Selector) Protocol() Protocol {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.enabled {
		return ProtocolH2
	}
	if !s.failedAt.IsZero() && s.now().Sub(s.failedAt) < s.retryInterval {
		return ProtocolH2
	}
	return ProtocolH3
}

// MarkFailed records an h3 failure at the current time. The first failure in
// a fallback window wins: repeated reports within the same window do not
// extend it. A report arriving after the window has elapsed starts a new
// window. Returns true when a new window was started.
func (s *Selector) MarkFailed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.failedAt.IsZero() && s.now().Sub(s.failedAt) < s.retryInterval {
		return false
	}
	s.failedAt = s.now()
	return true
}

// Reset clears the recorded failure so Protocol prefers h3 again. Callers
// invoke this after a verified successful h3 connection. Returns true when
// a failure was actually cleared.
func (s *Selector) Reset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failedAt.IsZero() {
		return false
	}
	s.failedAt = time.Time{}
	return true
}

// Failed reports whether a failure is currently recorded, and when the
// window started.
func (s *Selector) Failed() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failedAt, !s.failedAt.IsZero()
}

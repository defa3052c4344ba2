package transportx

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.eggybyte.com/duplex/core/log"
)

// RetryConfig controls the backoff behavior of DoWithRetry.
type RetryConfig struct {
	MaxRetries     int           // Attempts beyond the first (default 3)
	InitialBackoff time.Duration // First backoff duration (default 100ms)
	MaxBackoff     time.Duration // Backoff ceiling (default 5s)
	Multiplier     float64       // Backoff growth factor (default 2.0)
	Jitter         bool          // Randomize backoff by 0.5x-1.5x
}

// DefaultRetryConfig returns a RetryConfig with production defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
		Jitter:         true,
	}
}

// DoWithRetry executes fn with exponential backoff, driving the client's
// fallback protocol: the first failed attempt while h3 is active marks the
// h3 failure so later attempts use h2, and a successful attempt on h3
// clears the failure state. This is the explicit caller side of the
// transport's two-step fallback contract; Client.Do itself never retries.
func DoWithRetry[T any](ctx context.Context, c *Client, rcfg RetryConfig, fn func() (T, error)) (T, error) {
	var lastErr error
	var zero T

	for attempt := 0; attempt <= rcfg.MaxRetries; attempt++ {
		proto := c.Protocol()

		result, err := fn()
		if err == nil {
			if proto == ProtocolH3 {
				c.ResetH3()
			}
			return result, nil
		}
		lastErr = err

		if attempt == 0 && proto == ProtocolH3 {
			c.MarkH3Failed()
		}

		if attempt >= rcfg.MaxRetries {
			break
		}

		backoff := calcBackoff(rcfg, attempt)
		c.logger.Warn("request failed, retrying",
			log.Int("attempt", attempt+1),
			log.Int("max_retries", rcfg.MaxRetries),
			log.Dur("backoff", backoff),
			log.Str("error", err.Error()))

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return zero, lastErr
}

func calcBackoff(cfg RetryConfig, attempt int) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	if cfg.Jitter {
		backoff *= 0.5 + rand.Float64()
	}
	return time.Duration(backoff)
}

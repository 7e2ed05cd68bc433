package git

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// withRetry wraps a transient-prone git operation with the client's backoff
// policy. Permanent errors (auth, not-found, bad protocol) short-circuit.
// Only checkout-side operations go through here; a publish is never retried.
func (c *Client) withRetry(op, repoName string, fn func() (string, error)) (string, error) {
	// Rate-limit responses back off harder than plain timeouts.
	const rateLimitMultiplier = 3.0

	var lastErr error
	for attempt := 0; attempt <= c.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			slog.Warn("retrying git operation",
				slog.String("operation", op), slog.String("name", repoName), slog.Int("attempt", attempt))
			if c.retryObserver != nil {
				c.retryObserver(op)
			}
		}
		c.inRetry = true
		path, err := fn()
		c.inRetry = false
		if err == nil {
			return path, nil
		}
		lastErr = err
		if IsPermanent(err) {
			slog.Error("permanent git error",
				slog.String("operation", op), slog.String("name", repoName), slog.String("error", err.Error()))
			return "", err
		}
		if attempt == c.policy.MaxRetries {
			break
		}
		delay := c.policy.Delay(attempt + 1)
		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			delay = time.Duration(float64(delay) * rateLimitMultiplier)
		}
		time.Sleep(delay)
	}
	return "", fmt.Errorf("git %s failed after retries: %w", op, lastErr)
}

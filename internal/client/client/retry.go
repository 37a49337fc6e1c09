package client

import (
	"context"
	"errors"

	"github.com/sethvargo/go-retry"
)

// withRetry runs fn, repeating it on TransportError up to count extra times
// with a constant delay. Service errors and decode errors are final.
func (c *HTTPClient) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if c.retryCount == 0 || c.retryDelay <= 0 {
		return fn(ctx)
	}

	attempt := 0
	backoff := retry.WithMaxRetries(c.retryCount, retry.NewConstant(c.retryDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		var te *TransportError
		if errors.As(err, &te) {
			c.log.Warn(ctx, "request failed, will retry", "op", op, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

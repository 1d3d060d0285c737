package api

import (
	"context"
	"time"

	"dragonvpn-app/internal/logger"

	"go.uber.org/zap"
)

// Retry calls fn up to maxRetries+1 times, sleeping baseDelay*2^attempt
// between attempts. Errors IsRetryable rejects are returned immediately.
func Retry[T any](ctx context.Context, fn func(context.Context) (T, error), maxRetries int, baseDelay time.Duration) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt == maxRetries {
			break
		}

		delay := baseDelay << attempt
		logger.FromCtx(ctx).Debug("retrying request",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, lastErr
}

package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/falabella-scraper/internal/ratelimit"
)

// RetryPolicy configures NavigateWithRetry.
type RetryPolicy struct {
	MaxRetries int
	Backoff    *ratelimit.AdaptiveRateLimiter
	Logger     *slog.Logger
	// OnRetry is called before every attempt after the first.
	OnRetry func()
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		Backoff:    ratelimit.NewAdaptiveRateLimiter(time.Second, 3*time.Second),
		Logger:     slog.Default(),
	}
}

// NavigateWithRetry loads url, retrying with randomised backoff. A load that
// times out is stopped and treated as loaded with whatever has rendered.
func NavigateWithRetry(ctx context.Context, page Page, url string, policy RetryPolicy) error {
	if policy.MaxRetries < 1 {
		policy.MaxRetries = 1
	}
	if policy.Logger == nil {
		policy.Logger = slog.Default()
	}
	logger := policy.Logger.With("component", "browser")

	var lastErr error

	for i := 0; i < policy.MaxRetries; i++ {
		if i > 0 {
			logger.Info("retrying navigation", "attempt", i+1, "url", url)
			if policy.OnRetry != nil {
				policy.OnRetry()
			}
			if policy.Backoff != nil {
				if err := policy.Backoff.Wait(ctx); err != nil {
					return err
				}
			}
		}

		err := page.Goto(ctx, url)
		if err == nil {
			if policy.Backoff != nil {
				policy.Backoff.RecordSuccess()
			}
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if errors.Is(err, ErrNavigationTimeout) {
			stopErr := page.StopLoading()
			if stopErr == nil {
				logger.Warn("page load timed out, continuing with rendered content", "url", url)
				return nil
			}
			err = fmt.Errorf("%w (stop failed: %v)", err, stopErr)
		}

		lastErr = err
		if policy.Backoff != nil {
			policy.Backoff.RecordError()
		}
		logger.Error("navigation failed", "error", err, "attempt", i+1)
	}

	return fmt.Errorf("failed after %d retries: %w", policy.MaxRetries, lastErr)
}

package llm

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds how many times an external call is attempted and how
// long to wait between attempts. Backoff doubles after each failure.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 2,
		Backoff:  500 * time.Millisecond,
	}
}

// Do runs op up to p.Attempts times, sleeping between failures. The sleep is
// cut short if ctx is canceled, in which case the context error is returned.
func Do(ctx context.Context, p RetryPolicy, op func(context.Context) error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}

	var lastErr error
	delay := p.Backoff
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == p.Attempts {
			break
		}

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}
	}
	return fmt.Errorf("after %d attempts: %w", p.Attempts, lastErr)
}

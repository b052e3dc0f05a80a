package service

import (
	"context"
	"time"

	config "github.com/maheshrc27/campaign-publisher/configs"
	"github.com/maheshrc27/campaign-publisher/internal/models"
)

// RetryPolicy retries transient failures with exponential backoff.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func retryPolicyFor(p config.Pacing) RetryPolicy {
	return RetryPolicy{Attempts: p.RetryAttempts, BaseDelay: p.RetryBase, MaxDelay: p.RetryMax}
}

// Backoff returns the delay before retry n, counting from 1.
func (p RetryPolicy) Backoff(n int) time.Duration {
	if n < 1 || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < n; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do calls fn until it succeeds, returns a non-transient error, the attempts
// run out or ctx is done. It returns the number of calls made and the last
// error.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for n := 1; ; n++ {
		err = fn(ctx)
		if err == nil || !models.IsTransient(err) || n >= attempts {
			return n, err
		}
		if sleepErr := sleepCtx(ctx, p.Backoff(n)); sleepErr != nil {
			return n, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package service

import (
	"context"
	"errors"
	"time"

	config "github.com/maheshrc27/campaign-publisher/configs"
	"github.com/maheshrc27/campaign-publisher/internal/models"
)

type phaseOptions struct {
	delay        time.Duration
	pollInterval time.Duration
	maxPolls     int
	retry        RetryPolicy
	callTimeout  time.Duration
	pacer        *Pacer
}

func phaseOptionsFor(p config.Pacing) phaseOptions {
	return phaseOptions{
		delay:        p.PhaseDelay,
		pollInterval: p.PollInterval,
		maxPolls:     p.MaxPolls,
		retry:        retryPolicyFor(p),
	}
}

// publishTwoPhase creates a container, waits out the inter-phase delay and
// then publishes it. Only the publish step is polled while the platform
// reports the container as not ready. It returns the external id and the
// number of remote calls made. When ctx ends before the publish step was
// called nothing can have been posted, and the error wraps errNotSent.
func publishTwoPhase(ctx context.Context, c TwoPhaseClient, text string, media []string, opts phaseOptions) (string, int, error) {
	platform := c.Platform()
	calls := 0

	var containerID string
	_, err := opts.retry.Do(ctx, func(ctx context.Context) error {
		if err := opts.pacer.Wait(ctx); err != nil {
			return models.NewTransientError(platform, "cancelled while waiting for rate limit", errNotSent)
		}
		callCtx, cancel := withTimeout(ctx, opts.callTimeout)
		defer cancel()

		calls++
		id, err := c.CreateContainer(callCtx, text, media)
		if err != nil {
			return err
		}
		containerID = id
		return nil
	})
	if err != nil {
		if models.IsTransient(err) && ctx.Err() != nil {
			return "", calls, models.NewTransientError(platform, "cancelled before publishing", errNotSent)
		}
		return "", calls, err
	}

	if err := sleepCtx(ctx, opts.delay); err != nil {
		return "", calls, models.NewTransientError(platform, "cancelled between publish phases", errNotSent)
	}

	maxPolls := opts.maxPolls
	if maxPolls < 1 {
		maxPolls = 1
	}
	maxRetries := opts.retry.Attempts
	if maxRetries < 1 {
		maxRetries = 1
	}

	polls, retries := 0, 0
	for {
		calls++
		callCtx, cancel := withTimeout(ctx, opts.callTimeout)
		externalID, err := c.PublishContainer(callCtx, containerID)
		cancel()
		if err == nil {
			return externalID, calls, nil
		}
		if !models.IsTransient(err) {
			return "", calls, err
		}

		var delay time.Duration
		if errors.Is(err, models.ErrNotReady) {
			polls++
			if polls >= maxPolls {
				return "", calls, err
			}
			delay = opts.pollInterval
		} else {
			retries++
			if retries >= maxRetries {
				return "", calls, err
			}
			delay = opts.retry.Backoff(retries)
		}

		if sleepCtx(ctx, delay) != nil {
			return "", calls, err
		}
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

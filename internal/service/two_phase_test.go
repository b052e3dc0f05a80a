package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/campaign-publisher/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTwoPhase replays the given PublishContainer errors, then succeeds.
type fakeTwoPhase struct {
	platform   string
	createErrs []error
	publish    []error

	mu           sync.Mutex
	createCalls  int
	publishCalls int
	publishIDs   []string
}

func (f *fakeTwoPhase) Platform() string                        { return f.platform }
func (f *fakeTwoPhase) Validate(text string, media []string) error { return nil }

func (f *fakeTwoPhase) Publish(ctx context.Context, text string, media []string) (models.PublishResult, error) {
	panic("two-phase clients are published through their phases")
}

func (f *fakeTwoPhase) CreateContainer(ctx context.Context, text string, media []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if len(f.createErrs) >= f.createCalls {
		if err := f.createErrs[f.createCalls-1]; err != nil {
			return "", err
		}
	}
	return "container-1", nil
}

func (f *fakeTwoPhase) PublishContainer(ctx context.Context, containerID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishCalls++
	f.publishIDs = append(f.publishIDs, containerID)
	if len(f.publish) >= f.publishCalls {
		if err := f.publish[f.publishCalls-1]; err != nil {
			return "", err
		}
	}
	return "media-9", nil
}

func notReady() error {
	return models.NewTransientError(PlatformInstagram, "container", models.ErrNotReady)
}

func fastPhases() phaseOptions {
	return phaseOptions{
		delay:        time.Millisecond,
		pollInterval: time.Millisecond,
		maxPolls:     3,
		retry:        RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond},
	}
}

func TestPublishTwoPhase(t *testing.T) {
	t.Run("polls until ready", func(t *testing.T) {
		c := &fakeTwoPhase{platform: PlatformInstagram, publish: []error{notReady(), notReady()}}
		id, calls, err := publishTwoPhase(context.Background(), c, "hi", []string{"a.jpg"}, fastPhases())
		require.NoError(t, err)
		assert.Equal(t, "media-9", id)
		assert.Equal(t, 4, calls)
		assert.Equal(t, 1, c.createCalls)
		assert.Equal(t, []string{"container-1", "container-1", "container-1"}, c.publishIDs)
	})

	t.Run("gives up after max polls without recreating", func(t *testing.T) {
		c := &fakeTwoPhase{platform: PlatformInstagram, publish: []error{notReady(), notReady(), notReady(), notReady()}}
		_, calls, err := publishTwoPhase(context.Background(), c, "hi", []string{"a.jpg"}, fastPhases())
		assert.ErrorIs(t, err, models.ErrNotReady)
		assert.True(t, models.IsTransient(err))
		assert.Equal(t, 1, c.createCalls)
		assert.Equal(t, 3, c.publishCalls)
		assert.Equal(t, 4, calls)
	})

	t.Run("retries a failed create", func(t *testing.T) {
		c := &fakeTwoPhase{
			platform:   PlatformInstagram,
			createErrs: []error{models.NewTransientError(PlatformInstagram, "reset", nil)},
		}
		_, calls, err := publishTwoPhase(context.Background(), c, "hi", []string{"a.jpg"}, fastPhases())
		require.NoError(t, err)
		assert.Equal(t, 2, c.createCalls)
		assert.Equal(t, 3, calls)
	})

	t.Run("platform rejection is final", func(t *testing.T) {
		c := &fakeTwoPhase{
			platform: PlatformInstagram,
			publish:  []error{models.NewPlatformError(PlatformInstagram, "container is ERROR", nil)},
		}
		_, _, err := publishTwoPhase(context.Background(), c, "hi", []string{"a.jpg"}, fastPhases())
		assert.True(t, models.IsPlatform(err))
		assert.Equal(t, 1, c.publishCalls)
	})
}

func TestPublishTwoPhase_Cancelled(t *testing.T) {
	t.Run("before create", func(t *testing.T) {
		c := &fakeTwoPhase{platform: PlatformInstagram}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, calls, err := publishTwoPhase(ctx, c, "hi", []string{"a.jpg"}, fastPhases())
		assert.ErrorIs(t, err, errNotSent)
		assert.Zero(t, calls)
		assert.Zero(t, c.createCalls)
	})

	t.Run("between phases", func(t *testing.T) {
		c := &fakeTwoPhase{platform: PlatformInstagram}
		opts := fastPhases()
		opts.delay = time.Minute
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, calls, err := publishTwoPhase(ctx, c, "hi", []string{"a.jpg"}, opts)
		assert.ErrorIs(t, err, errNotSent)
		assert.Equal(t, 1, calls)
		assert.Equal(t, 1, c.createCalls)
		assert.Zero(t, c.publishCalls)
	})

	t.Run("while polling is a real attempt", func(t *testing.T) {
		c := &fakeTwoPhase{platform: PlatformInstagram, publish: []error{notReady(), notReady(), notReady()}}
		opts := fastPhases()
		opts.pollInterval = time.Minute
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, _, err := publishTwoPhase(ctx, c, "hi", []string{"a.jpg"}, opts)
		assert.ErrorIs(t, err, models.ErrNotReady)
		assert.NotErrorIs(t, err, errNotSent)
		assert.Equal(t, 1, c.publishCalls)
	})
}

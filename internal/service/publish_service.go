package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	config "github.com/maheshrc27/campaign-publisher/configs"
	"github.com/maheshrc27/campaign-publisher/internal/models"
	"github.com/maheshrc27/campaign-publisher/internal/observability"
	"github.com/maheshrc27/campaign-publisher/internal/repository"
	"github.com/maheshrc27/campaign-publisher/pkg/utils"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	storeWriteAttempts = 3
	storeWriteDelay    = 500 * time.Millisecond
	storeWriteTimeout  = 30 * time.Second
)

// errNotSent marks a platform the tick ended before reaching. It never
// becomes a recorded result.
var errNotSent = errors.New("tick ended before the platform was called")

// TickReport summarises one tick. Unsent counts platforms left for the next
// tick because the tick ended before they were called.
type TickReport struct {
	TickID    string        `json:"tick_id"`
	Posts     int           `json:"posts"`
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Unsent    int           `json:"unsent"`
	Duration  time.Duration `json:"duration"`
}

func (r *TickReport) add(o TickReport) {
	r.Attempted += o.Attempted
	r.Succeeded += o.Succeeded
	r.Failed += o.Failed
	r.Skipped += o.Skipped
	r.Unsent += o.Unsent
}

type PublishService interface {
	// Tick publishes every due post once.
	Tick(ctx context.Context) (*TickReport, error)
}

type PublishOptions struct {
	Clock       utils.Clock
	Concurrency int
	CallTimeout time.Duration
	TickTimeout time.Duration
	Pacing      map[string]config.Pacing
}

type publishService struct {
	store   repository.PostRepository
	clients map[string]PlatformClient
	pacers  map[string]*Pacer
	opts    PublishOptions
}

func NewPublishService(store repository.PostRepository, clients map[string]PlatformClient, opts PublishOptions) PublishService {
	if opts.Clock == nil {
		opts.Clock = utils.SystemClock{Location: time.Local}
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	pacers := make(map[string]*Pacer, len(clients))
	for platform := range clients {
		pacers[platform] = NewPacer(opts.Pacing[platform].MinInterval)
	}

	return &publishService{
		store:   store,
		clients: clients,
		pacers:  pacers,
		opts:    opts,
	}
}

func (s *publishService) Tick(ctx context.Context) (*TickReport, error) {
	start := time.Now()
	tickID, err := gonanoid.New(10)
	if err != nil {
		return nil, err
	}
	report := &TickReport{TickID: tickID}
	logger := slog.With("tick_id", tickID)

	if s.opts.TickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.TickTimeout)
		defer cancel()
	}

	posts, err := s.store.DueNow(ctx, s.opts.Clock)
	if err != nil {
		observability.ObserveTick("error", start)
		return nil, fmt.Errorf("failed to load due posts: %w", err)
	}
	report.Posts = len(posts)
	if len(posts) > 0 {
		logger.Info("publishing due posts", "count", len(posts))
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	semaphore := make(chan struct{}, s.opts.Concurrency)

	for i, post := range posts {
		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			mu.Lock()
			for _, left := range posts[i:] {
				report.Unsent += pendingPlatforms(left)
			}
			mu.Unlock()
			logger.Warn("tick ended before every due post was started", "left", len(posts)-i)
			break
		}

		wg.Add(1)
		go func(post *models.Post) {
			defer wg.Done()
			defer func() { <-semaphore }()
			defer func() {
				if p := recover(); p != nil {
					logger.Error("panic while publishing post", "post_id", post.ID, "panic", p)
				}
			}()

			postReport := s.publishPost(ctx, logger, post)

			mu.Lock()
			report.add(postReport)
			mu.Unlock()
		}(post)
	}
	wg.Wait()

	report.Duration = time.Since(start)
	observability.ObserveTick("ok", start)
	if report.Posts > 0 {
		logger.Info("tick finished",
			"posts", report.Posts,
			"succeeded", report.Succeeded,
			"failed", report.Failed,
			"skipped", report.Skipped,
			"unsent", report.Unsent,
			"duration", report.Duration)
	}
	return report, nil
}

func pendingPlatforms(post *models.Post) int {
	n := 0
	for _, platform := range post.Platforms {
		if !post.Succeeded(platform) {
			n++
		}
	}
	return n
}

// publishPost attempts every platform of post that has not succeeded yet
// and records the outcome. Platforms the tick never reached get no result,
// so the post stays scheduled for them.
func (s *publishService) publishPost(ctx context.Context, logger *slog.Logger, post *models.Post) TickReport {
	var report TickReport
	logger = logger.With("post_id", post.ID)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]models.PublishResult, len(post.Platforms))
	)

	for _, platform := range post.Platforms {
		if post.Succeeded(platform) {
			report.Skipped++
			continue
		}

		wg.Add(1)
		go func(platform string) {
			defer wg.Done()
			result, sent := s.publishOne(ctx, post, platform)

			mu.Lock()
			defer mu.Unlock()
			if !sent {
				report.Unsent++
				return
			}
			results[platform] = result
		}(platform)
	}
	wg.Wait()

	for platform, result := range results {
		report.Attempted++
		if result.Success {
			report.Succeeded++
			logger.Info("published", "platform", platform, "external_id", result.ExternalID, "attempts", result.Attempts)
		} else {
			report.Failed++
			logger.Warn("publish failed", "platform", platform, "kind", result.ErrorKind, "error", result.Error, "attempts", result.Attempts)
		}
	}

	if len(results) == 0 && report.Unsent > 0 {
		logger.Info("post left scheduled, tick ended before any platform was called")
		return report
	}

	updated, err := s.recordResult(ctx, post.ID, results)
	if err != nil {
		logger.Error("failed to record publish results", "error", err)
		return report
	}
	logger.Info("post updated", "status", updated.Status)
	return report
}

// recordResult writes results on a context detached from the tick, so a
// tick timeout never loses the outcome of calls that already happened.
func (s *publishService) recordResult(ctx context.Context, postID int64, results map[string]models.PublishResult) (*models.Post, error) {
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeWriteTimeout)
	defer cancel()

	var err error
	for attempt := 1; attempt <= storeWriteAttempts; attempt++ {
		var post *models.Post
		post, err = s.store.RecordResult(storeCtx, postID, results)
		if err == nil {
			return post, nil
		}
		if errors.Is(err, models.ErrPostNotFound) || attempt == storeWriteAttempts {
			break
		}
		observability.StoreWriteRetries.Inc()
		if sleepCtx(storeCtx, time.Duration(attempt)*storeWriteDelay) != nil {
			break
		}
	}
	return nil, err
}

// publishOne never panics. sent is false when ctx ended before the
// platform was called; result is then meaningless.
func (s *publishService) publishOne(ctx context.Context, post *models.Post, platform string) (result models.PublishResult, sent bool) {
	start := time.Now()
	calls := 0

	defer func() {
		if p := recover(); p != nil {
			result = failure(platform, models.NewPlatformError(platform, fmt.Sprintf("panic: %v", p), nil), calls)
			sent = true
		}
		outcome := "success"
		switch {
		case !sent:
			outcome = "unsent"
		case !result.Success:
			outcome = string(result.ErrorKind)
		}
		observability.ObservePublish(platform, outcome, start)
	}()

	client, ok := s.clients[platform]
	if !ok {
		return failure(platform, models.NewPlatformError(platform, "no client registered for platform", nil), 0), true
	}
	if err := client.Validate(post.Text, post.Media); err != nil {
		return failure(platform, err, 0), true
	}

	pacing := s.opts.Pacing[platform]
	policy := retryPolicyFor(pacing)
	pacer := s.pacers[platform]

	if tp, ok := client.(TwoPhaseClient); ok {
		opts := phaseOptionsFor(pacing)
		opts.pacer = pacer
		opts.callTimeout = s.opts.CallTimeout

		externalID, n, err := publishTwoPhase(ctx, tp, post.Text, post.Media, opts)
		calls = n
		if errors.Is(err, errNotSent) {
			return models.PublishResult{}, false
		}
		if err != nil {
			return failure(platform, err, calls), true
		}
		return models.PublishResult{
			Platform:   platform,
			Success:    true,
			ExternalID: externalID,
			Attempts:   calls,
			Timestamp:  time.Now(),
		}, true
	}

	var (
		published models.PublishResult
		lastErr   error
	)
	_, err := policy.Do(ctx, func(ctx context.Context) error {
		if err := pacer.Wait(ctx); err != nil {
			return models.NewTransientError(platform, "cancelled while waiting for rate limit", errNotSent)
		}
		callCtx, cancel := withTimeout(ctx, s.opts.CallTimeout)
		defer cancel()

		calls++
		r, err := client.Publish(callCtx, post.Text, post.Media)
		lastErr = err
		if err != nil {
			return err
		}
		published = r
		return nil
	})
	if err != nil {
		if calls == 0 {
			return models.PublishResult{}, false
		}
		if errors.Is(err, errNotSent) {
			err = lastErr
		}
		return failure(platform, err, calls), true
	}

	published.Platform = platform
	published.Success = true
	published.Attempts = calls
	if published.Timestamp.IsZero() {
		published.Timestamp = time.Now()
	}
	return published, true
}

func failure(platform string, err error, attempts int) models.PublishResult {
	return models.PublishResult{
		Platform:  platform,
		Success:   false,
		Error:     err.Error(),
		ErrorKind: models.KindOf(err),
		Attempts:  attempts,
		Timestamp: time.Now(),
	}
}

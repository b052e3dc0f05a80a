package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/campaign-publisher/internal/observability"
	"github.com/maheshrc27/campaign-publisher/internal/service"
	"github.com/robfig/cron"
)

var ErrStopped = errors.New("publish job is stopped")

// PublishJob runs the publish tick on a fixed interval. A trigger that
// fires while a tick is still running is dropped, not queued.
type PublishJob struct {
	publisher service.PublishService
	interval  time.Duration
	local     LocalLock
	shared    Locker

	cron *cron.Cron

	mu      sync.Mutex
	stopped bool
	cancels map[int]context.CancelFunc
	nextID  int
	wg      sync.WaitGroup
}

// NewPublishJob returns a job ticking every interval. shared may be nil;
// when set it must be acquired as well, so replicas do not tick together.
func NewPublishJob(publisher service.PublishService, interval time.Duration, shared Locker) *PublishJob {
	return &PublishJob{
		publisher: publisher,
		interval:  interval,
		shared:    shared,
		cancels:   make(map[int]context.CancelFunc),
	}
}

func (j *PublishJob) Start() error {
	if j.interval <= 0 {
		return fmt.Errorf("invalid tick interval %s", j.interval)
	}

	c := cron.New()
	err := c.AddFunc("@every "+j.interval.String(), func() {
		if _, _, err := j.RunOnce(context.Background()); err != nil && !errors.Is(err, ErrStopped) {
			slog.Error("publish tick failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule publish tick: %w", err)
	}

	j.mu.Lock()
	j.cron = c
	j.mu.Unlock()

	c.Start()
	slog.Info("publish scheduler started", "interval", j.interval)
	return nil
}

// RunOnce runs a tick now unless one is already running. ran reports
// whether a tick ran.
func (j *PublishJob) RunOnce(ctx context.Context) (report *service.TickReport, ran bool, err error) {
	id, tickCtx, ok := j.begin(ctx)
	if !ok {
		return nil, false, ErrStopped
	}
	defer j.end(id)

	release, ok, err := j.local.TryLock(tickCtx)
	if err != nil || !ok {
		observability.Ticks.WithLabelValues("skipped").Inc()
		slog.Info("publish tick skipped, previous tick still running")
		return nil, false, err
	}
	defer release()

	if j.shared != nil {
		releaseShared, ok, err := j.shared.TryLock(tickCtx)
		if err != nil {
			observability.Ticks.WithLabelValues("error").Inc()
			return nil, false, err
		}
		if !ok {
			observability.Ticks.WithLabelValues("skipped").Inc()
			slog.Info("publish tick skipped, another replica holds the lock")
			return nil, false, nil
		}
		defer releaseShared()
	}

	report, err = j.publisher.Tick(tickCtx)
	return report, true, err
}

func (j *PublishJob) begin(ctx context.Context) (int, context.Context, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopped {
		return 0, nil, false
	}

	tickCtx, cancel := context.WithCancel(ctx)
	j.nextID++
	j.cancels[j.nextID] = cancel
	j.wg.Add(1)
	return j.nextID, tickCtx, true
}

func (j *PublishJob) end(id int) {
	j.mu.Lock()
	cancel := j.cancels[id]
	delete(j.cancels, id)
	j.mu.Unlock()

	cancel()
	j.wg.Done()
}

// Stop stops the schedule and waits for a running tick to finish. When ctx
// ends first the tick is cancelled and Stop returns ctx's error once it has
// unwound.
func (j *PublishJob) Stop(ctx context.Context) error {
	j.mu.Lock()
	j.stopped = true
	c := j.cron
	j.mu.Unlock()

	if c != nil {
		c.Stop()
	}

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("publish scheduler stopped")
		return nil
	case <-ctx.Done():
	}

	j.mu.Lock()
	for _, cancel := range j.cancels {
		cancel()
	}
	j.mu.Unlock()

	<-done
	slog.Warn("publish scheduler stopped before the running tick finished")
	return ctx.Err()
}

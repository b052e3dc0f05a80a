package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PublishAttempts counts finished (post, platform) publish attempts by
	// outcome: success or the error kind.
	PublishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "publisher_publish_attempts_total",
		Help: "Total number of publish attempts by platform and outcome",
	}, []string{"platform", "outcome"})

	// PlatformCallLatency records the time spent publishing one post to one
	// platform, retries included.
	PlatformCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "publisher_platform_publish_seconds",
		Help:    "Time spent publishing to a platform in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"platform"})

	// Ticks counts scheduler ticks by result: ok, error, skipped.
	Ticks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "publisher_ticks_total",
		Help: "Total number of publish ticks by result",
	}, []string{"result"})

	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "publisher_tick_duration_seconds",
		Help:    "Duration of publish ticks in seconds",
		Buckets: []float64{0.01, 0.1, 1, 5, 15, 30, 60, 120, 300, 600},
	})

	// StoreWriteRetries counts retried result writes.
	StoreWriteRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "publisher_store_write_retries_total",
		Help: "Total number of retried post result writes",
	})
)

// ObservePublish records one finished publish attempt.
func ObservePublish(platform, outcome string, start time.Time) {
	PublishAttempts.WithLabelValues(platform, outcome).Inc()
	PlatformCallLatency.WithLabelValues(platform).Observe(time.Since(start).Seconds())
}

// ObserveTick records a finished tick.
func ObserveTick(result string, start time.Time) {
	Ticks.WithLabelValues(result).Inc()
	TickDuration.Observe(time.Since(start).Seconds())
}

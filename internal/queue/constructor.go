package queue

import (
	"context"
	"time"

	"github.com/maheshrc27/campaign-publisher/internal/service"
)

// TickRunner runs a publish tick unless one is already running.
type TickRunner interface {
	RunOnce(ctx context.Context) (*service.TickReport, bool, error)
}

type Queue struct {
	runner TickRunner
}

func NewQueue(runner TickRunner) *Queue {
	return &Queue{runner: runner}
}

const TaskTypePublishTick = "publish:tick"

type TickPayload struct {
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

package queue

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// EnqueueTick asks a worker to run a publish tick after delay. Ticks
// enqueued within the same window collapse into one task.
func EnqueueTick(asynqClient *asynq.Client, payload TickPayload, delay time.Duration) (*asynq.TaskInfo, error) {
	if payload.RequestedAt.IsZero() {
		payload.RequestedAt = time.Now()
	}
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	task := asynq.NewTask(TaskTypePublishTick, taskPayload)

	info, err := asynqClient.Enqueue(task,
		asynq.ProcessIn(delay),
		asynq.MaxRetry(0),
		asynq.Unique(time.Minute),
	)
	if err != nil {
		return nil, err
	}

	slog.Info("tick task enqueued", "task_id", info.ID, "requested_by", payload.RequestedBy)
	return info, nil
}

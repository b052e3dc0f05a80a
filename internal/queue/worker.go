package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

func (q *Queue) HandleTickTask(ctx context.Context, task *asynq.Task) error {
	var payload TickPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid tick payload: %v: %w", err, asynq.SkipRetry)
	}

	report, ran, err := q.runner.RunOnce(ctx)
	if err != nil {
		return err
	}
	if !ran {
		slog.Info("tick task skipped, a tick is already running", "requested_by", payload.RequestedBy)
		return nil
	}

	slog.Info("tick task done",
		"requested_by", payload.RequestedBy,
		"tick_id", report.TickID,
		"posts", report.Posts,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"unsent", report.Unsent)
	return nil
}

package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	job "github.com/maheshrc27/campaign-publisher/internal/jobs"
	"github.com/maheshrc27/campaign-publisher/internal/queue"
	"github.com/maheshrc27/campaign-publisher/internal/transfer"
)

type TickHandler struct {
	runner queue.TickRunner
	client *asynq.Client
}

// NewTickHandler serves manual ticks. client may be nil, in which case
// asynchronous requests are rejected.
func NewTickHandler(runner queue.TickRunner, client *asynq.Client) *TickHandler {
	return &TickHandler{runner: runner, client: client}
}

func (h *TickHandler) TriggerTick(c *fiber.Ctx) error {
	if c.QueryBool("async") {
		return h.enqueue(c)
	}

	report, ran, err := h.runner.RunOnce(c.Context())
	if errors.Is(err, job.ErrStopped) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Scheduler is shutting down",
		})
	}
	if err != nil {
		return errorResponse(c, err)
	}

	resp := transfer.TickResponse{Ran: ran}
	if report != nil {
		resp.TickID = report.TickID
		resp.Posts = report.Posts
		resp.Attempted = report.Attempted
		resp.Succeeded = report.Succeeded
		resp.Failed = report.Failed
		resp.Skipped = report.Skipped
		resp.Unsent = report.Unsent
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *TickHandler) enqueue(c *fiber.Ctx) error {
	if h.client == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Task queue is not configured",
		})
	}

	payload := queue.TickPayload{
		RequestedBy: GetOperator(c),
		RequestedAt: time.Now().UTC(),
	}
	info, err := queue.EnqueueTick(h.client, payload, 0)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return c.Status(fiber.StatusAccepted).JSON(transfer.TickResponse{Queued: true})
	}
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error queueing tick",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(transfer.TickResponse{Queued: true, TickID: info.ID})
}

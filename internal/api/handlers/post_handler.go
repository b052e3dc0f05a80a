package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/campaign-publisher/internal/models"
	"github.com/maheshrc27/campaign-publisher/internal/service"
	"github.com/maheshrc27/campaign-publisher/internal/transfer"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var pc transfer.PostCreation
	if err := c.BodyParser(&pc); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	post, err := h.s.CreatePost(c.Context(), &pc)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.List(c.Context(), c.Query("status"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return errorResponse(c, err)
	}

	post, err := h.s.PostInfo(c.Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) EditPost(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return errorResponse(c, err)
	}

	var pe transfer.PostEdit
	if err := c.BodyParser(&pe); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	post, err := h.s.Edit(c.Context(), id, &pe)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	return h.transition(c, h.s.Schedule)
}

func (h *PostHandler) UnschedulePost(c *fiber.Ctx) error {
	return h.transition(c, h.s.Unschedule)
}

func (h *PostHandler) transition(c *fiber.Ctx, fn func(ctx context.Context, id int64) (*models.Post, error)) error {
	id, err := paramID(c, "id")
	if err != nil {
		return errorResponse(c, err)
	}

	post, err := fn(c.Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) ReschedulePost(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return errorResponse(c, err)
	}

	var body transfer.Reschedule
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	post, err := h.s.Reschedule(c.Context(), id, body.ScheduledFor)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return errorResponse(c, err)
	}

	if err := h.s.Remove(c.Context(), id); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PostHandler) DuePosts(c *fiber.Ctx) error {
	posts, err := h.s.Due(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) PostedIDs(c *fiber.Ctx) error {
	platform := c.Query("platform")
	ids, err := h.s.PostedIDs(c.Context(), platform)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"platform": platform,
		"post_ids": ids,
	})
}

func (h *PostHandler) PostHistory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return errorResponse(c, err)
	}

	history, err := h.s.History(c.Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(history)
}

func (h *PostHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.s.Stats(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}

func (h *PostHandler) ImportCampaign(c *fiber.Ctx) error {
	campaignID, err := paramID(c, "id")
	if err != nil {
		return errorResponse(c, err)
	}

	var ci transfer.CampaignImport
	if err := c.BodyParser(&ci); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	startDay, err := service.ParseImportDate(ci.StartDate)
	if err != nil {
		return errorResponse(c, err)
	}

	result, err := h.s.ImportCampaign(c.Context(), campaignID, ci.Posts, startDay)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/campaign-publisher/internal/service"
	"github.com/maheshrc27/campaign-publisher/internal/transfer"
)

type CampaignHandler struct {
	s service.CampaignService
}

func NewCampaignHandler(service service.CampaignService) *CampaignHandler {
	return &CampaignHandler{s: service}
}

func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	var cc transfer.CampaignCreation
	if err := c.BodyParser(&cc); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	campaign, err := h.s.Create(c.Context(), &cc)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(campaign)
}

func (h *CampaignHandler) ListCampaigns(c *fiber.Ctx) error {
	campaigns, err := h.s.List(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(campaigns)
}

func (h *CampaignHandler) AddPost(c *fiber.Ctx) error {
	campaignID, err := paramID(c, "id")
	if err != nil {
		return errorResponse(c, err)
	}
	postID, err := paramID(c, "postID")
	if err != nil {
		return errorResponse(c, err)
	}

	if err := h.s.AddPost(c.Context(), campaignID, postID); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CampaignHandler) CampaignPosts(c *fiber.Ctx) error {
	campaignID, err := paramID(c, "id")
	if err != nil {
		return errorResponse(c, err)
	}

	posts, err := h.s.Posts(c.Context(), campaignID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(posts)
}

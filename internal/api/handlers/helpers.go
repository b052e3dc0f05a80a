package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/campaign-publisher/internal/models"
)

func GetOperator(c *fiber.Ctx) string {
	operator, _ := c.Locals("operator").(string)
	return operator
}

// paramID reads a positive integer route parameter.
func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("", "invalid %s", name)
	}
	return id, nil
}

// errorResponse maps an error to its HTTP status and writes it as JSON.
func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var pe *models.PublishError

	switch {
	case errors.Is(err, models.ErrPostNotFound), errors.Is(err, models.ErrCampaignNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, models.ErrInvalidTransition):
		status = fiber.StatusConflict
	case errors.As(err, &pe):
		switch pe.Kind {
		case models.KindValidation:
			status = fiber.StatusBadRequest
		case models.KindAuth:
			status = fiber.StatusUnauthorized
		case models.KindTransient:
			status = fiber.StatusServiceUnavailable
		default:
			status = fiber.StatusBadGateway
		}
	}

	if status == fiber.StatusInternalServerError {
		slog.Error("request failed", "path", c.Path(), "error", err)
		return c.Status(status).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

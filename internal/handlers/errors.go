package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

const invalidDataMessage = "The given data was invalid."

func badRequestBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: "Invalid request body",
	})
}

// writeError renders a service error. Server-side details are logged and
// replaced with a generic message.
func writeError(c *fiber.Ctx, action string, err error) error {
	status := services.StatusCode(err)
	resp := dto.ErrorResponse{Error: true, Message: err.Error()}

	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		resp.Message = invalidDataMessage
		resp.Errors = verr.Fields
	case status == fiber.StatusBadGateway:
		slog.Warn("identity provider unavailable", "action", action, "request_id", requestID(c), "error", err.Error())
		resp.Message = services.ErrUpstreamProvider.Error()
	case status >= fiber.StatusInternalServerError:
		slog.Error("request failed", "action", action, "request_id", requestID(c),
			"method", c.Method(), "path", c.Path(), "error", err.Error())
		resp.Message = "Internal server error"
	}

	return c.Status(status).JSON(resp)
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}

package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	driver string
	ping   func() error
}

// NewHealthHandler reports on the given store driver. ping may be nil for
// stores without a connection.
func NewHealthHandler(driver string, ping func() error) *HealthHandler {
	return &HealthHandler{driver: driver, ping: ping}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	storeStatus := "ok"
	if h.ping != nil {
		if err := h.ping(); err != nil {
			storeStatus = "unhealthy: " + err.Error()
		}
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Driver:    h.driver,
		Store:     storeStatus,
	})
}

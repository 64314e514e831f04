package handlers

import (
	"trustbooks/internal/dto"

	"github.com/gofiber/fiber/v2"
)

const Version = "1.0.0"

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Root godoc
// @Summary Service banner
// @Tags system
// @Produce json
// @Success 200 {object} dto.RootResponse
// @Router / [get]
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(dto.RootResponse{
		Message: "TrustBooks Backend API",
		Version: Version,
	})
}

// Health godoc
// @Summary Liveness probe
// @Tags system
// @Success 200
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	c.Status(fiber.StatusOK)
	return nil
}

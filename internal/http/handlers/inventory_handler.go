package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "threadline/internal/log"
	"threadline/internal/services"
	"threadline/internal/validate"
)

type InventoryHandler struct {
	Inv *services.InventoryService
}

// GET /api/v1/availability?sku=
func (h *InventoryHandler) Check(c *fiber.Ctx) error {
	sku, ok := validate.SKU(c.Query("sku"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "sku"})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "enter a valid sku",
		})
	}

	avail, err := h.Inv.CheckAvailability(sku)
	if err != nil {
		applog.Error(c, "availability.fail", err, map[string]any{"sku": sku})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "could not check availability",
		})
	}
	return c.JSON(avail)
}

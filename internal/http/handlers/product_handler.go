package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"threadline/internal/domain"
	"threadline/internal/log"
	"threadline/internal/services"
	"threadline/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

// GET /product/:slug
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	slug, ok := validate.Slug(strings.ToLower(c.Params("slug")))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return notFound(c, "This item is no longer available")
	}
	page, err := h.Catalog.Product(c.UserContext(), slug)
	if errors.Is(err, domain.ErrNotFound) {
		return notFound(c, "This item is no longer available")
	}
	if err != nil {
		log.Error(c, "product.load.fail", err, map[string]any{"slug": slug})
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load this item. Please retry."})
	}
	return render(c, "product", fiber.Map{"P": page.Product, "Page": page})
}

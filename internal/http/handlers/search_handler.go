package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"threadline/internal/catalog"
	"threadline/internal/log"
	"threadline/internal/validate"
)

// SearchHandler keeps the header search box working: it validates the
// keyword and hands over to the shop listing.
type SearchHandler struct{}

// GET /search?q=&category=
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	f := catalog.DefaultFilters()
	rawQ := c.Query("q")
	if strings.TrimSpace(rawQ) == "" {
		return c.Redirect(f.URL("/shop"))
	}
	q, ok := validate.Q(rawQ)
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "q", "value": rawQ})
		return c.Status(fiber.StatusBadRequest).Render("notfound", fiber.Map{
			"Message": "Enter a valid keyword (letters and numbers only)",
		})
	}
	f.Search = q
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		slug, ok := validate.Slug(category)
		if !ok {
			log.Security(c, "validation.fail", map[string]any{"field": "category"})
			return c.Status(fiber.StatusBadRequest).Render("notfound", fiber.Map{"Message": "Invalid category"})
		}
		f.Categories = []string{slug}
	}
	return c.Redirect(f.URL("/shop"))
}

package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"threadline/internal/catalog"
	applog "threadline/internal/log"
	"threadline/internal/validate"
)

const homeNewest = 8

// GET /
func (h *ShopHandler) Home(c *fiber.Ctx) error {
	ctx := c.UserContext()
	tree, err := h.Catalog.Tree(ctx)
	if err != nil {
		applog.Error(c, "home.tree.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load the store. Please retry."})
	}
	newest, err := h.Catalog.Newest(ctx, homeNewest)
	if err != nil {
		applog.Error(c, "home.newest.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load the store. Please retry."})
	}
	data := fiber.Map{"Categories": tree.Roots(), "Products": newest}
	if h.Banners != nil {
		// the store still works without its carousel
		if banners, err := h.Banners.Showing(ctx); err != nil {
			applog.Error(c, "home.banners.fail", err, nil)
		} else {
			data["Banners"] = banners
		}
	}
	return render(c, "home", data)
}

// GET /category/:slug redirects to the shop filtered on that category.
func (h *ShopHandler) Category(c *fiber.Ctx) error {
	slug, ok := validate.Slug(strings.ToLower(c.Params("slug")))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "category"})
		return notFound(c, "Category not found")
	}
	tree, err := h.Catalog.Tree(c.UserContext())
	if err != nil {
		applog.Error(c, "category.tree.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load the store. Please retry."})
	}
	if _, ok := tree.BySlug(slug); !ok {
		return notFound(c, "Category not found")
	}
	f := catalog.DefaultFilters()
	f.Categories = []string{slug}
	return c.Redirect(f.URL("/shop"))
}

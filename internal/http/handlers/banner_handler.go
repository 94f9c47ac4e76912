package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"threadline/internal/domain"
	applog "threadline/internal/log"
	"threadline/internal/services"
	"threadline/internal/validate"
)

// BannerHandler serves the admin carousel pages.
type BannerHandler struct {
	Banners *services.BannerService
}

func (h *BannerHandler) page(c *fiber.Ctx, status int, form services.BannerForm, fields map[string]string) error {
	banners, err := h.Banners.List(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.banners.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load banners"})
	}
	c.Status(status)
	return render(c, "admin_banners", fiber.Map{"Banners": banners, "Form": form, "Fields": fields})
}

// GET /admin/banners
func (h *BannerHandler) Index(c *fiber.Ctx) error {
	return h.page(c, fiber.StatusOK, services.BannerForm{}, nil)
}

// POST /admin/banners
func (h *BannerHandler) Create(c *fiber.Ctx) error {
	var f services.BannerForm
	if err := c.BodyParser(&f); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"field": "banner"})
		return c.Status(400).SendString("invalid banner form")
	}
	id, err := h.Banners.Create(c.UserContext(), f)
	var fe *services.FormError
	if errors.As(err, &fe) {
		return h.page(c, fiber.StatusUnprocessableEntity, f, fe.Fields)
	}
	if err != nil {
		applog.Error(c, "admin.banners.create.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not save banner"})
	}
	applog.Audit(c, "admin.banners.create", map[string]any{"banner_id": id, "title": f.Title})
	return c.Redirect("/admin/banners", fiber.StatusSeeOther)
}

// POST /admin/banners/:id/toggle
func (h *BannerHandler) Toggle(c *fiber.Ctx) error {
	id, ok := validate.IntID(c.Params("id"))
	if !ok {
		return notFound(c, "Banner not found")
	}
	active, err := h.Banners.Toggle(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return notFound(c, "Banner not found")
		}
		applog.Error(c, "admin.banners.toggle.fail", err, map[string]any{"banner_id": id})
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not update banner"})
	}
	applog.Audit(c, "admin.banners.toggle", map[string]any{"banner_id": id, "active": active})
	return c.Redirect("/admin/banners", fiber.StatusSeeOther)
}

// POST /admin/banners/:id/delete
func (h *BannerHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.IntID(c.Params("id"))
	if !ok {
		return notFound(c, "Banner not found")
	}
	if err := h.Banners.Delete(c.UserContext(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return notFound(c, "Banner not found")
		}
		applog.Error(c, "admin.banners.delete.fail", err, map[string]any{"banner_id": id})
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not delete banner"})
	}
	applog.Audit(c, "admin.banners.delete", map[string]any{"banner_id": id})
	return c.Redirect("/admin/banners", fiber.StatusSeeOther)
}

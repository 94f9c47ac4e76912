package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"threadline/internal/domain"
	applog "threadline/internal/log"
	"threadline/internal/services"
	"threadline/internal/validate"
)

// ReferenceHandler serves the admin pages for sizes and couriers.
type ReferenceHandler struct {
	Ref *services.AdminCatalogService
}

func (h *ReferenceHandler) sizesPage(c *fiber.Ctx, status int, msg string) error {
	sizes, err := h.Ref.ListSizes(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.sizes.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load sizes"})
	}
	c.Status(status)
	return render(c, "admin_sizes", fiber.Map{"Sizes": sizes, "Err": msg})
}

// GET /admin/sizes
func (h *ReferenceHandler) Sizes(c *fiber.Ctx) error {
	return h.sizesPage(c, fiber.StatusOK, "")
}

// POST /admin/sizes
func (h *ReferenceHandler) AddSize(c *fiber.Ctx) error {
	label := c.FormValue("label")
	id, err := h.Ref.AddSize(c.UserContext(), label)
	if errors.Is(err, domain.ErrInvalidInput) {
		return h.sizesPage(c, fiber.StatusUnprocessableEntity, "Size labels are 1-12 characters and must be unique")
	}
	if err != nil {
		applog.Error(c, "admin.sizes.create.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not save size"})
	}
	applog.Audit(c, "admin.sizes.create", map[string]any{"size_id": id, "label": label})
	return c.Redirect("/admin/sizes", fiber.StatusSeeOther)
}

// POST /admin/sizes/:id/delete
func (h *ReferenceHandler) DeleteSize(c *fiber.Ctx) error {
	id, ok := validate.IntID(c.Params("id"))
	if !ok {
		return notFound(c, "Size not found")
	}
	if err := h.Ref.DeleteSize(c.UserContext(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return notFound(c, "Size not found")
		}
		applog.Error(c, "admin.sizes.delete.fail", err, map[string]any{"size_id": id})
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not delete size"})
	}
	applog.Audit(c, "admin.sizes.delete", map[string]any{"size_id": id})
	return c.Redirect("/admin/sizes", fiber.StatusSeeOther)
}

func (h *ReferenceHandler) couriersPage(c *fiber.Ctx, status int, msg string) error {
	couriers, err := h.Ref.ListCouriers(c.UserContext(), false)
	if err != nil {
		applog.Error(c, "admin.couriers.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load couriers"})
	}
	c.Status(status)
	return render(c, "admin_couriers", fiber.Map{"Couriers": couriers, "Err": msg})
}

// GET /admin/couriers
func (h *ReferenceHandler) Couriers(c *fiber.Ctx) error {
	return h.couriersPage(c, fiber.StatusOK, "")
}

// POST /admin/couriers
func (h *ReferenceHandler) AddCourier(c *fiber.Ctx) error {
	name := c.FormValue("name")
	id, err := h.Ref.AddCourier(c.UserContext(), name, c.FormValue("fee"))
	if errors.Is(err, domain.ErrInvalidInput) {
		return h.couriersPage(c, fiber.StatusUnprocessableEntity, "Enter a unique name and a fee like 4.99")
	}
	if err != nil {
		applog.Error(c, "admin.couriers.create.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not save courier"})
	}
	applog.Audit(c, "admin.couriers.create", map[string]any{"courier_id": id, "name": name})
	return c.Redirect("/admin/couriers", fiber.StatusSeeOther)
}

// POST /admin/couriers/:id/delete
func (h *ReferenceHandler) DeleteCourier(c *fiber.Ctx) error {
	id, ok := validate.IntID(c.Params("id"))
	if !ok {
		return notFound(c, "Courier not found")
	}
	if err := h.Ref.DeleteCourier(c.UserContext(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return notFound(c, "Courier not found")
		}
		applog.Error(c, "admin.couriers.delete.fail", err, map[string]any{"courier_id": id})
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not delete courier"})
	}
	applog.Audit(c, "admin.couriers.delete", map[string]any{"courier_id": id})
	return c.Redirect("/admin/couriers", fiber.StatusSeeOther)
}

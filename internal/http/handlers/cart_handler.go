package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"threadline/internal/domain"
	applog "threadline/internal/log"
	"threadline/internal/services"
	"threadline/internal/validate"
)

type CartHandler struct {
	Cart          *services.CartService
	SecureCookies bool
}

// POST /cart
func (h *CartHandler) Add(c *fiber.Ctx) error {
	sid := ensureSID(c, h.SecureCookies)
	variantID, ok := validate.ID(c.FormValue("variantId"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "variantId"})
		return c.Status(fiber.StatusBadRequest).SendString("choose a size or colour first")
	}
	qty := validate.Qty(c.FormValue("qty"))

	err := h.Cart.Add(c.UserContext(), sid, variantID, qty)
	if errors.Is(err, domain.ErrNotFound) {
		return notFound(c, "This item is no longer available")
	}
	if err != nil {
		applog.Error(c, "cart.add.fail", err, map[string]any{"variant": variantID})
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not update your cart"})
	}
	return c.Redirect("/cart")
}

// POST /cart/remove
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	sid := ensureSID(c, h.SecureCookies)
	variantID, ok := validate.ID(c.FormValue("variantId"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing variantId")
	}
	if err := h.Cart.Remove(sid, variantID); err != nil {
		applog.Error(c, "cart.remove.fail", err, map[string]any{"variant": variantID})
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not update your cart"})
	}
	return c.Redirect("/cart")
}

// GET /cart
func (h *CartHandler) View(c *fiber.Ctx) error {
	cv, err := h.Cart.View(ensureSID(c, h.SecureCookies))
	if err != nil {
		applog.Error(c, "cart.view.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load your cart"})
	}
	return render(c, "cart", fiber.Map{"Cart": cv})
}

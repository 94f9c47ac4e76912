package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"threadline/internal/domain"
	applog "threadline/internal/log"
	"threadline/internal/repos"
	"threadline/internal/services"
	"threadline/internal/validate"
)

type AdminHandler struct {
	Orders *services.OrderService
	Inv    *services.InventoryService
	Users  *repos.UserRepo
	Recent *repos.OrderRepo
}

var orderStatuses = []string{"PLACED", "PAID", "SHIPPED", "DELIVERED", "CANCELLED"}

// GET /admin
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	ords, err := h.Recent.ListLatest(5)
	if err != nil {
		applog.Error(c, "admin.dashboard.fail", err, nil)
	}
	return render(c, "admin_dashboard", fiber.Map{"Orders": ords})
}

// GET /admin/orders
func (h *AdminHandler) OrdersPage(c *fiber.Ctx) error {
	ords, err := h.Recent.ListLatest(100)
	if err != nil {
		applog.Error(c, "admin.orders.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load orders"})
	}
	return render(c, "admin_orders", fiber.Map{"Orders": ords, "Statuses": orderStatuses})
}

// POST /admin/orders/:id/status
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	status := c.FormValue("status")
	if !ok || status == "" {
		return c.Status(400).SendString("missing id or status")
	}
	if err := h.Orders.SetStatus(id, status); err != nil {
		applog.Error(c, "admin.orders.update.fail", err, map[string]any{"order_id": id})
		if errors.Is(err, domain.ErrNotFound) {
			return notFound(c, "Order not found")
		}
		return c.Status(400).SendString("could not update status")
	}
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": id, "status": status})
	return c.Redirect("/admin/orders")
}

// GET /admin/inventory
func (h *AdminHandler) Inventory(c *fiber.Ctx) error {
	rows, err := h.Inv.List()
	if err != nil {
		applog.Error(c, "admin.inventory.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load inventory"})
	}
	return render(c, "admin_inventory", fiber.Map{"Rows": rows})
}

// POST /admin/inventory sets the stock of one variant.
func (h *AdminHandler) UpdateInventory(c *fiber.Ctx) error {
	vid := c.FormValue("variant_id")
	qty, err := h.Inv.SetStock(vid, c.FormValue("qty"))
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		applog.Security(c, "validation.fail", map[string]any{"field": "inventory"})
		return c.Status(400).SendString("invalid input")
	case errors.Is(err, domain.ErrNotFound):
		return notFound(c, "Variant not found")
	case err != nil:
		applog.Error(c, "admin.inventory.save.fail", err, map[string]any{"variant": vid})
		return c.Status(400).SendString("could not save inventory")
	}
	applog.Audit(c, "admin.inventory.save", map[string]any{"variant": vid, "qty": qty})
	return c.Redirect("/admin/inventory")
}

// GET /admin/users
func (h *AdminHandler) UsersPage(c *fiber.Ctx) error {
	users, err := h.Users.List()
	if err != nil {
		applog.Error(c, "admin.users.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load users"})
	}
	return render(c, "admin_users", fiber.Map{"Users": users})
}

// DeleteUser deletes a user and related data, cancels their open orders.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(400).SendString("missing id")
	}
	if u, _ := c.Locals("user").(*domain.User); u != nil && u.ID == id {
		return c.Status(400).SendString("cannot delete the signed-in admin")
	}
	if err := h.Users.DeleteUserCascade(id); err != nil {
		applog.Error(c, "admin.users.delete.fail", err, map[string]any{"user_id": id})
		return c.Status(400).SendString("could not delete user")
	}
	applog.Audit(c, "admin.users.delete", map[string]any{"user_id": id})
	return c.Redirect("/admin/users")
}

package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"threadline/internal/domain"
	applog "threadline/internal/log"
	"threadline/internal/services"
	"threadline/internal/validate"
)

type OrderHandler struct {
	Cart          *services.CartService
	Order         *services.OrderService
	Ref           *services.AdminCatalogService
	Auth          *services.AuthService
	SecureCookies bool
}

var paymentMethods = []struct{ Value, Label string }{
	{"card", "Credit card"},
	{"paypal", "PayPal"},
	{"cod", "Cash on delivery"},
}

// GET /checkout
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	cv, err := h.Cart.View(ensureSID(c, h.SecureCookies))
	if err != nil {
		applog.Error(c, "checkout.load", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load your cart"})
	}
	couriers, err := h.Ref.ListCouriers(c.UserContext(), true)
	if err != nil {
		applog.Error(c, "checkout.couriers", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load shipping options"})
	}
	return render(c, "checkout", fiber.Map{"Cart": cv, "Couriers": couriers, "Payments": paymentMethods})
}

// POST /orders
func (h *OrderHandler) Place(c *fiber.Ctx) error {
	sid := ensureSID(c, h.SecureCookies)

	postal, ok := validate.PostalCode(c.FormValue("postal_code"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "postal_code"})
		return c.Status(fiber.StatusBadRequest).SendString("invalid postal code")
	}
	email, ok := validate.Email(c.FormValue("email"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "email"})
		return c.Status(fiber.StatusBadRequest).SendString("invalid email")
	}
	name, ok := validate.Name(c.FormValue("name"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "name"})
		return c.Status(fiber.StatusBadRequest).SendString("name must be 1-40 characters")
	}
	courierID, ok := validate.IntID(c.FormValue("courier_id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "courier_id"})
		return c.Status(fiber.StatusBadRequest).SendString("choose a shipping option")
	}
	method, ok := validate.PaymentMethod(c.FormValue("payment_method"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "payment_method"})
		return c.Status(fiber.StatusBadRequest).SendString("choose a payment method")
	}
	clientTotal, _ := strconv.ParseInt(strings.TrimSpace(c.FormValue("client_total")), 10, 64)

	r, err := h.Order.Place(c.UserContext(), sid, services.PlaceInput{
		PostalCode:    postal,
		CourierID:     courierID,
		PaymentMethod: method,
		Contact:       services.Contact{Name: name, Email: email},
		ClientTotal:   clientTotal,
	})
	if err != nil {
		applog.Security(c, "order.place.fail", map[string]any{"sid": sid, "error": err.Error()})
		msg := "Could not place order. Please review quantities and try again."
		if errors.Is(err, domain.ErrCartEmpty) {
			msg = "Your cart is empty."
		}
		return c.Status(fiber.StatusBadRequest).SendString(msg)
	}
	applog.Audit(c, "order.place", map[string]any{
		"order_id":     r.OrderID,
		"server_total": r.Total,
		"client_total": clientTotal,
		"mismatch":     clientTotal != 0 && clientTotal != r.Total,
		"payment":      method,
		"status":       r.Status,
	})
	return c.Redirect("/order/" + r.OrderID)
}

// GET /order/:id is visible to the placing session, the owning user and admins.
func (h *OrderHandler) View(c *fiber.Ctx) error {
	oid, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "Order not found")
	}
	o, items, err := h.Order.Get(oid)
	if err != nil {
		return notFound(c, "Order not found")
	}

	sid := c.Cookies("sid")
	var u *domain.User
	if h.Auth != nil && sid != "" {
		u, _ = h.Auth.CurrentUser(sid)
	}
	owner := (sid != "" && sid == o.SessionID) || (u != nil && u.ID != "" && u.ID == o.UserID)
	if !owner && !u.IsAdmin() {
		applog.Security(c, "access.denied.order", map[string]any{"order_id": oid})
		return notFound(c, "Order not found")
	}
	return render(c, "order", fiber.Map{"Order": o, "Items": items})
}

// GET /orders
func (h *OrderHandler) History(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	if u == nil {
		return notFound(c, "Orders not available")
	}
	orders, err := h.Order.History(u.ID, c.Cookies("sid"))
	if err != nil {
		applog.Error(c, "orders.history.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load orders"})
	}
	return render(c, "order_history", fiber.Map{"Orders": orders})
}

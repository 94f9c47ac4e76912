package services

import (
	"context"
	"errors"
	"fmt"

	"threadline/internal/domain"
	"threadline/internal/repos"
	"threadline/internal/validate"

	"github.com/google/uuid"
)

type Contact struct {
	Name  string
	Email string
}

// PlaceInput is the checkout form after handler-level validation.
type PlaceInput struct {
	PostalCode    string
	CourierID     int64
	PaymentMethod string
	Contact       Contact
	// ClientTotal is what the checkout page showed; it is logged, never trusted.
	ClientTotal int64
}

// Receipt is the server-computed outcome of a placed order.
type Receipt struct {
	OrderID  string
	Subtotal int64
	Shipping int64
	Total    int64
	Status   string
}

type OrderService struct {
	Carts    *repos.CartRepo
	Inv      *repos.InventoryRepo
	Orders   *repos.OrderRepo
	Couriers *repos.CourierRepo
	// Postal fills in city and state from the ZIP code; nil skips the lookup.
	Postal *repos.PostalRepo
}

func NewOrderService(carts *repos.CartRepo, inv *repos.InventoryRepo, orders *repos.OrderRepo, couriers *repos.CourierRepo) *OrderService {
	return &OrderService{Carts: carts, Inv: inv, Orders: orders, Couriers: couriers}
}

// LookupAddress resolves a ZIP or ZIP+4 code to its city and state.
func (s *OrderService) LookupAddress(ctx context.Context, postalCode string) (domain.PostalArea, error) {
	postal, ok := validate.PostalCode(postalCode)
	if !ok {
		return domain.PostalArea{}, fmt.Errorf("%w: postal code", domain.ErrInvalidInput)
	}
	if s.Postal == nil {
		return domain.PostalArea{}, domain.ErrNotFound
	}
	return s.Postal.Lookup(ctx, postal[:3])
}

// paymentStatus is the mock payment step: card and paypal are approved on
// the spot, cash on delivery waits for the courier.
func paymentStatus(method string) (string, error) {
	switch method {
	case "card", "paypal":
		return "PAID", nil
	case "cod":
		return "PLACED", nil
	}
	return "", fmt.Errorf("%w: payment method %q", domain.ErrInvalidInput, method)
}

func (s *OrderService) Place(ctx context.Context, sessionID string, in PlaceInput) (Receipt, error) {
	postal, ok := validate.PostalCode(in.PostalCode)
	if !ok {
		return Receipt{}, fmt.Errorf("%w: postal code", domain.ErrInvalidInput)
	}
	method, ok := validate.PaymentMethod(in.PaymentMethod)
	if !ok {
		return Receipt{}, fmt.Errorf("%w: payment method", domain.ErrInvalidInput)
	}
	status, err := paymentStatus(method)
	if err != nil {
		return Receipt{}, err
	}

	courier, err := s.Couriers.ByID(ctx, in.CourierID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Receipt{}, fmt.Errorf("%w: courier", domain.ErrInvalidInput)
		}
		return Receipt{}, err
	}
	if !courier.Active {
		return Receipt{}, fmt.Errorf("%w: courier unavailable", domain.ErrInvalidInput)
	}

	// unknown areas still ship; the order just has no city on file
	area, err := s.LookupAddress(ctx, postal)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return Receipt{}, err
	}

	cartID, err := s.Carts.EnsureCart(sessionID)
	if err != nil {
		return Receipt{}, err
	}
	items, subtotal, err := s.Carts.View(cartID)
	if err != nil {
		return Receipt{}, err
	}
	if len(items) == 0 {
		return Receipt{}, domain.ErrCartEmpty
	}

	// pre-check stock for a readable error; Place re-checks atomically
	for _, it := range items {
		qty, err := s.Inv.Stock(it.VariantID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return Receipt{}, err
		}
		if qty < it.Qty {
			return Receipt{}, fmt.Errorf("%w for %s (need %d, have %d)", domain.ErrInsufficientStock, it.SKU, it.Qty, qty)
		}
	}

	r := Receipt{
		OrderID:  uuid.NewString(),
		Subtotal: subtotal,
		Shipping: courier.Fee,
		Total:    subtotal + courier.Fee,
		Status:   status,
	}
	err = s.Orders.Place(repos.NewOrder{
		ID:            r.OrderID,
		SessionID:     sessionID,
		CartID:        cartID,
		PostalCode:    postal,
		City:          area.City,
		Region:        area.Region,
		Courier:       courier,
		PaymentMethod: method,
		Customer:      in.Contact.Name,
		Email:         in.Contact.Email,
		Subtotal:      r.Subtotal,
		Total:         r.Total,
		Status:        r.Status,
		Lines:         items,
	})
	if err != nil {
		return Receipt{}, err
	}
	return r, nil
}

// Get returns an order with its lines.
func (s *OrderService) Get(orderID string) (repos.OrderRow, []repos.OrderItemRow, error) {
	return s.Orders.Get(orderID)
}

// History lists a user's orders, falling back to the orders placed from the
// current session before login.
func (s *OrderService) History(userID, sessionID string) ([]repos.OrderSummary, error) {
	orders, err := s.Orders.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 && sessionID != "" {
		if sess, err := s.Orders.ListBySession(sessionID); err == nil {
			orders = sess
		}
	}
	return orders, nil
}

// SetStatus moves an order to one of the admin statuses.
func (s *OrderService) SetStatus(orderID, status string) error {
	st, ok := validate.OrderStatus(status)
	if !ok {
		return fmt.Errorf("%w: status %q", domain.ErrInvalidInput, status)
	}
	return s.Orders.UpdateStatus(orderID, st)
}

package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	"threadline/internal/domain"
	"threadline/internal/repos"
	"threadline/internal/services"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type shop struct {
	cart   *services.CartService
	order  *services.OrderService
	inv    *repos.InventoryRepo
	orders *repos.OrderRepo
}

func newShop(db *sqlx.DB) shop {
	cartRepo := repos.NewCartRepo(db)
	invRepo := repos.NewInventoryRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	orderSvc := services.NewOrderService(cartRepo, invRepo, orderRepo, repos.NewCourierRepo(db))
	orderSvc.Postal = repos.NewPostalRepo(db)
	return shop{
		cart:   services.NewCartService(cartRepo, repos.NewVariantRepo(db)),
		order:  orderSvc,
		inv:    invRepo,
		orders: orderRepo,
	}
}

func TestOrderFlow_AddCartCheckout(t *testing.T) {
	s := newShop(memdb(t))
	ctx := context.Background()
	sid := "test-session"

	// oxford S/White has 8 in stock
	if err := s.cart.Add(ctx, sid, "p-oxford-v01", 2); err != nil {
		t.Fatal(err)
	}
	if err := s.cart.Add(ctx, sid, "p-scarf-v01", 1); err != nil {
		t.Fatal(err)
	}

	cv, err := s.cart.View(sid)
	if err != nil {
		t.Fatal(err)
	}
	if len(cv.Items) != 2 || cv.Total != 2*4500+3500 {
		t.Fatalf("bad cart view: %+v", cv)
	}

	r, err := s.order.Place(ctx, sid, services.PlaceInput{
		PostalCode:    "20742",
		CourierID:     2, // Express Courier
		PaymentMethod: "card",
		Contact:       services.Contact{Name: "Tester", Email: "t@e.com"},
		ClientTotal:   1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if r.OrderID == "" {
		t.Fatal("no order id")
	}
	if r.Subtotal != 12500 || r.Shipping != 1299 || r.Total != 13799 {
		t.Fatalf("server totals wrong: %+v", r)
	}
	if r.Status != "PAID" {
		t.Fatalf("card payment should mark the order PAID, got %s", r.Status)
	}

	// inventory decremented from 8 to 6
	qty, err := s.inv.Stock("p-oxford-v01")
	if err != nil {
		t.Fatal(err)
	}
	if qty != 6 {
		t.Fatalf("want qty=6, got %d", qty)
	}

	cv, _ = s.cart.View(sid)
	if len(cv.Items) != 0 {
		t.Fatalf("cart should be empty after checkout, got %d lines", len(cv.Items))
	}

	o, items, err := s.order.Get(r.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if o.CourierName != "Express Courier" || o.PaymentMethod != "card" || len(items) != 2 {
		t.Fatalf("bad order: %+v %+v", o, items)
	}
	if o.City != "College Park" || o.Region != "MD" {
		t.Fatalf("address lookup not stored: %q %q", o.City, o.Region)
	}
}

func TestOrderService_LookupAddress(t *testing.T) {
	s := newShop(memdb(t))
	ctx := context.Background()

	a, err := s.order.LookupAddress(ctx, " 94103-1234 ")
	if err != nil {
		t.Fatal(err)
	}
	if a.City != "San Francisco" || a.Region != "CA" {
		t.Fatalf("lookup = %+v", a)
	}
	if _, err := s.order.LookupAddress(ctx, "99999"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown prefix: want ErrNotFound, got %v", err)
	}
	if _, err := s.order.LookupAddress(ctx, "9410"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("short code: want ErrInvalidInput, got %v", err)
	}
}

func TestOrderFlow_CashOnDeliveryStaysPlaced(t *testing.T) {
	s := newShop(memdb(t))
	ctx := context.Background()
	if err := s.cart.Add(ctx, "sid-cod", "p-tee-v01", 1); err != nil {
		t.Fatal(err)
	}
	r, err := s.order.Place(ctx, "sid-cod", services.PlaceInput{PostalCode: "20742-1234", CourierID: 3, PaymentMethod: "COD"})
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != "PLACED" || r.Shipping != 0 {
		t.Fatalf("want PLACED with free pickup, got %+v", r)
	}
}

func TestOrderFlow_Rejections(t *testing.T) {
	s := newShop(memdb(t))
	ctx := context.Background()
	ok := services.PlaceInput{PostalCode: "20742", CourierID: 1, PaymentMethod: "paypal"}

	if _, err := s.order.Place(ctx, "empty", ok); !errors.Is(err, domain.ErrCartEmpty) {
		t.Fatalf("want ErrCartEmpty, got %v", err)
	}

	// oxford M/Blue has 3 in stock
	if err := s.cart.Add(ctx, "greedy", "p-oxford-v04", 4); err != nil {
		t.Fatal(err)
	}
	if _, err := s.order.Place(ctx, "greedy", ok); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("want ErrInsufficientStock, got %v", err)
	}
	if qty, _ := s.inv.Stock("p-oxford-v04"); qty != 3 {
		t.Fatalf("stock must be untouched, got %d", qty)
	}

	bad := []services.PlaceInput{
		{PostalCode: "ABCDE", CourierID: 1, PaymentMethod: "card"},
		{PostalCode: "20742", CourierID: 1, PaymentMethod: "bitcoin"},
		{PostalCode: "20742", CourierID: 99, PaymentMethod: "card"},
	}
	for _, in := range bad {
		if _, err := s.order.Place(ctx, "greedy", in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("%+v: want ErrInvalidInput, got %v", in, err)
		}
	}

	if err := s.cart.Add(ctx, "greedy", "ghost", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound for unknown variant, got %v", err)
	}
}

func TestOrderService_SetStatus(t *testing.T) {
	s := newShop(memdb(t))
	ctx := context.Background()
	if err := s.cart.Add(ctx, "sid", "p-tee-v01", 1); err != nil {
		t.Fatal(err)
	}
	r, err := s.order.Place(ctx, "sid", services.PlaceInput{PostalCode: "20742", CourierID: 1, PaymentMethod: "cod"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.order.SetStatus(r.OrderID, "shipped"); err != nil {
		t.Fatal(err)
	}
	if err := s.order.SetStatus(r.OrderID, "LOST"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
	o, _, _ := s.order.Get(r.OrderID)
	if o.Status != "SHIPPED" {
		t.Fatalf("want SHIPPED, got %s", o.Status)
	}

	hist, err := s.order.History("u-nobody", "sid")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 1 {
		t.Fatalf("session orders should show in history, got %d", len(hist))
	}
}

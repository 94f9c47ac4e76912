package handlers_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"

	"threadline/internal/config"
	"threadline/internal/http/handlers"
	"threadline/internal/repos"
	"threadline/internal/services"
)

// Helper: minimal app for order placement with recompute check
func newOrderTotalsApp(t *testing.T) (*fiber.App, *sqlx.DB, *repos.OrderRepo, *repos.UserRepo) {
	t.Helper()
	cfg := config.Config{DBDSN: ":memory:", MediaDir: "../../web/media"}
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	userRepo := repos.NewUserRepo(db)
	authSvc := &services.AuthService{Users: userRepo}
	authH := &handlers.AuthHandler{Auth: authSvc}

	engine := handlers.NewEngine("../../web/templates")
	app := fiber.New(fiber.Config{Views: engine})
	app.Server().MaxRequestBodySize = 1 << 20
	app.Use(requestid.New())
	app.Use(limiter.New(limiter.Config{Max: 100, Expiration: 0}))
	app.Use(csrf.New(csrf.Config{KeyLookup: "form:csrf", CookieName: "csrf_", CookieSameSite: "Lax"}))
	app.Use(func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := authSvc.CurrentUser(sid); err == nil && u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	})

	deps := handlers.NewDeps(db, cfg, authSvc, nil)
	t.Cleanup(deps.Catalog.Close)
	app.Post("/cart", deps.CartHandler.Add)
	app.Post("/orders", deps.OrderHandler.Place)
	app.Get("/order/:id", deps.OrderHandler.View)
	app.Get("/login", authH.LoginForm)

	return app, db, repos.NewOrderRepo(db), userRepo
}

func extractCookieTotals(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// Stored line prices and the client total are ignored; totals come from
// current variant prices and the courier fee.
func TestOrderTotalsRecomputed(t *testing.T) {
	app, db, ordRepo, _ := newOrderTotalsApp(t)

	// Seed a cart with tampered price_at_add
	sid := "sid-tamper"
	_, _ = db.Exec(`INSERT INTO carts(id,session_id,updated_at) VALUES(?,?,CURRENT_TIMESTAMP)`, sid, sid)
	_, _ = db.Exec(`INSERT INTO cart_items(cart_id, variant_id, qty, price_at_add, created_at) VALUES(?,?,?,?,CURRENT_TIMESTAMP)`,
		sid, "p-oxford-v01", 2, 100) // tampered price $1.00 instead of the real $45.00

	// Get CSRF token
	loginResp, _ := app.Test(httptest.NewRequest("GET", "/login", nil))
	csrfTok := extractCookieTotals(loginResp, "csrf_")
	if csrfTok == "" {
		t.Fatal("csrf token missing")
	}

	formOrder := strings.NewReader("csrf=" + csrfTok +
		"&postal_code=20742&email=alice@threadline.test&name=Alice&courier_id=1&payment_method=card&client_total=200")
	reqOrder := httptest.NewRequest("POST", "/orders", formOrder)
	reqOrder.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	reqOrder.AddCookie(&http.Cookie{Name: "csrf_", Value: csrfTok})
	reqOrder.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	respOrder, err := app.Test(reqOrder)
	if err != nil {
		t.Fatal(err)
	}
	if respOrder.StatusCode != http.StatusFound {
		body, _ := io.ReadAll(respOrder.Body)
		t.Fatalf("expected redirect on order, got %d body=%s", respOrder.StatusCode, body)
	}

	// Parse order id from redirect
	loc := respOrder.Header.Get("Location")
	if loc == "" {
		t.Fatal("no redirect location with order id")
	}
	parts := strings.Split(loc, "/")
	oid := parts[len(parts)-1]

	ord, items, err := ordRepo.Get(oid)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	// 2 x 4500 + Standard Post 499
	if ord.Subtotal != 9000 || ord.Total != 9499 {
		t.Fatalf("order total not recomputed; got subtotal=%d total=%d", ord.Subtotal, ord.Total)
	}
	if len(items) != 1 || items[0].Price != 4500 || items[0].SKU != "oxford-shirt-SWH-001" {
		t.Fatalf("unexpected order lines: %+v", items)
	}

	// The receipt page renders for the placing session
	reqView := httptest.NewRequest("GET", loc, nil)
	reqView.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	respView, err := app.Test(reqView)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(respView.Body)
	if respView.StatusCode != http.StatusOK || !strings.Contains(string(body), "$94.99") {
		t.Fatalf("receipt page: status %d body=%s", respView.StatusCode, body)
	}
}

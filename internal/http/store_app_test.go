package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"

	"threadline/internal/config"
	"threadline/internal/http/handlers"
	"threadline/internal/repos"
	"threadline/internal/services"
)

// storeApp is the storefront and admin routing without the rate limiters.
type storeApp struct {
	app   *fiber.App
	db    *sqlx.DB
	users *repos.UserRepo
	csrf  string
}

func newStoreApp(t *testing.T) *storeApp {
	t.Helper()
	cfg := config.Config{DBDSN: ":memory:", MediaDir: "../../web/media", VariantKeepEdits: true}
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	userRepo := repos.NewUserRepo(db)
	authSvc := &services.AuthService{Users: userRepo}
	authH := &handlers.AuthHandler{Auth: authSvc}

	app := fiber.New(fiber.Config{Views: handlers.NewEngine("../../web/templates")})
	app.Use(requestid.New())
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Next:           func(c *fiber.Ctx) bool { return c.Path() == "/api/v1/filters/apply" },
	}))
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

	app.Get("/", deps.ShopHandler.Home)
	app.Get("/shop", deps.ShopHandler.Shop)
	app.Post("/shop/filters", deps.ShopHandler.Filters)
	app.Get("/search", deps.SearchHandler.Search)
	app.Get("/category/:slug", deps.ShopHandler.Category)
	app.Get("/product/:slug", deps.ProductHandler.Detail)
	app.Get("/cart", deps.CartHandler.View)
	app.Post("/cart", deps.CartHandler.Add)
	app.Get("/checkout", deps.OrderHandler.Checkout)
	app.Get("/login", authH.LoginForm)

	api := app.Group("/api/v1")
	api.Get("/products", deps.APIHandler.Products)
	api.Post("/filters/apply", deps.APIHandler.ApplyFilters)
	api.Get("/categories", deps.APIHandler.Categories)
	api.Get("/availability", deps.InventoryHandler.Check)
	api.Get("/address/:postal", deps.APIHandler.Address)

	admin := app.Group("/admin", handlers.RequireAdmin(authSvc))
	admin.Get("/products", deps.AdminProductHandler.Index)
	admin.Post("/products/preview", deps.AdminProductHandler.Preview)
	admin.Post("/products", deps.AdminProductHandler.Create)
	admin.Get("/products/:id/edit", deps.AdminProductHandler.Edit)
	admin.Post("/products/:id", deps.AdminProductHandler.Update)
	admin.Post("/categories", deps.AdminCategoryHandler.Create)
	admin.Post("/categories/:id/delete", deps.AdminCategoryHandler.Delete)
	admin.Get("/banners", deps.BannerHandler.Index)
	admin.Post("/banners", deps.BannerHandler.Create)
	admin.Post("/banners/:id/toggle", deps.BannerHandler.Toggle)
	admin.Post("/banners/:id/delete", deps.BannerHandler.Delete)

	if err := userRepo.BindSession("sid-admin", "u-admin"); err != nil {
		t.Fatalf("bind admin session: %v", err)
	}

	s := &storeApp{app: app, db: db, users: userRepo}
	resp, err := app.Test(httptest.NewRequest("GET", "/login", nil))
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "csrf_" {
			s.csrf = c.Value
		}
	}
	if s.csrf == "" {
		t.Fatal("csrf token missing")
	}
	return s
}

func (s *storeApp) get(t *testing.T, path string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

// post submits form with the csrf token attached.
func (s *storeApp) post(t *testing.T, path string, form url.Values, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	form.Set("csrf", s.csrf)
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: s.csrf})
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

var adminCookie = &http.Cookie{Name: "sid", Value: "sid-admin"}

package handlers_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"threadline/internal/http/handlers"
)

func newErrorApp() *fiber.App {
	app := fiber.New(fiber.Config{
		Views:        handlers.NewEngine("../../web/templates"),
		ErrorHandler: handlers.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(requestid.New())

	app.Get("/fiber-500", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusInternalServerError, "db timeout: secret trace")
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return errors.New("sql: secret dsn")
	})
	app.Get("/gone", func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})
	app.Post("/upload", func(c *fiber.Ctx) error {
		return fiber.ErrRequestEntityTooLarge
	})
	app.Get("/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("secret state")
	})
	return app
}

// Errors escaping a handler render the friendly page; server-side detail
// never reaches the body.
func TestErrorHandlerFriendlyPages(t *testing.T) {
	app := newErrorApp()

	tests := []struct {
		method, path string
		status       int
		msg          string
	}{
		{"GET", "/fiber-500", 500, "Something went wrong"},
		{"GET", "/plain", 500, "Something went wrong"},
		{"GET", "/panic", 500, "Something went wrong"},
		{"GET", "/gone", 404, "Page not found."},
		{"POST", "/upload", 413, "That request was too large."},
		{"GET", "/teapot", 418, "Something went wrong"},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(tt.method, tt.path, nil))
		if err != nil {
			t.Fatalf("%s: test request failed: %v", tt.path, err)
		}
		if resp.StatusCode != tt.status {
			t.Fatalf("%s: expected %d, got %d", tt.path, tt.status, resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		s := string(body)
		if !strings.Contains(s, tt.msg) {
			t.Fatalf("%s: message %q missing; body=%s", tt.path, tt.msg, s)
		}
		if strings.Contains(s, "secret") {
			t.Fatalf("%s: internal details leaked to user; body=%s", tt.path, s)
		}
	}
}

// A body over the server limit goes through the same handler.
func TestErrorHandlerBodyLimit(t *testing.T) {
	app := fiber.New(fiber.Config{
		Views:        handlers.NewEngine("../../web/templates"),
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    64,
	})
	app.Post("/upload", func(c *fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest("POST", "/upload", strings.NewReader(strings.Repeat("A", 4096)))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req)
	if err != nil {
		// fasthttp may drop the connection instead of answering
		if strings.Contains(err.Error(), "body size exceeds") || strings.Contains(err.Error(), "too large") {
			return
		}
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "That request was too large.") {
		t.Fatalf("413 message missing; body=%s", body)
	}
}

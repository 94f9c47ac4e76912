package handlers

import (
	"fmt"
	"html/template"

	"github.com/gofiber/fiber/v2"
	html "github.com/gofiber/template/html/v2"

	"threadline/internal/services"
)

// NewEngine loads the page templates with the view helpers registered.
func NewEngine(dir string) *html.Engine {
	engine := html.New(dir, ".html")
	for name, fn := range viewFuncs() {
		engine.AddFunc(name, fn)
	}
	return engine
}

func viewFuncs() template.FuncMap {
	return template.FuncMap{
		"money":       money,
		"cents":       formatCents,
		"stockStatus": services.StatusFor,
		"add":         func(a, b int) int { return a + b },
		"sub":         func(a, b int) int { return a - b },
	}
}

// money renders minor units as "$45.50".
func money(c int64) string {
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s$%d.%02d", sign, c/100, c%100)
}

// formatCents renders minor units for a price input, "45.50".
func formatCents(c int64) string {
	return fmt.Sprintf("%d.%02d", c/100, c%100)
}

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if u := c.Locals("user"); u != nil {
		data["User"] = u
	}
	// token put into Locals by the CSRF middleware, or the cookie when a
	// handler renders before the middleware populated it
	tok, _ := c.Locals("CSRFToken").(string)
	if tok == "" {
		tok = c.Cookies("csrf_")
	}
	if tok != "" {
		data["CSRFToken"] = tok
	}
	return c.Render(tmpl, data)
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": msg})
}

package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"threadline/internal/domain"
	applog "threadline/internal/log"
	"threadline/internal/repos"
	"threadline/internal/services"
	"threadline/internal/validate"
)

// maxOptionSlots is how many option rows the product form shows.
const maxOptionSlots = 5

type AdminProductHandler struct {
	Products *services.ProductAdminService
	List     *repos.ProductRepo
	Catalog  *services.CatalogService
	Ref      *services.AdminCatalogService
	PerPage  int
}

type optionSlot struct {
	Name   string
	Values string
}

func optionSlots(f services.ProductForm) []optionSlot {
	n := len(f.OptionNames) + 1
	if n < 2 {
		n = 2
	}
	if n > maxOptionSlots {
		n = maxOptionSlots
	}
	slots := make([]optionSlot, n)
	for i := range slots {
		if i < len(f.OptionNames) {
			slots[i].Name = f.OptionNames[i]
		}
		if i < len(f.OptionValues) {
			slots[i].Values = f.OptionValues[i]
		}
	}
	return slots
}

// GET /admin/products?q=&page=
func (h *AdminProductHandler) Index(c *fiber.Ctx) error {
	q := cleanSearch(c.Query("q"))
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	products, total, err := h.List.AdminList(c.UserContext(), q, page, h.PerPage)
	if err != nil {
		applog.Error(c, "admin.products.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load products"})
	}
	pages := (total + h.PerPage - 1) / h.PerPage
	return render(c, "admin_products", fiber.Map{
		"Products": products,
		"Total":    total,
		"Q":        q,
		"Page":     page,
		"Pages":    pages,
		"HasPrev":  page > 1,
		"HasNext":  page < pages,
	})
}

func (h *AdminProductHandler) renderEditor(c *fiber.Ctx, status int, ed services.ProductEditor) error {
	tree, err := h.Catalog.Tree(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.products.tree.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load categories"})
	}
	sizes, err := h.Ref.SizeLabels(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.products.sizes.fail", err, nil)
	}
	action := "/admin/products"
	if ed.Form.ID != "" {
		action = "/admin/products/" + ed.Form.ID
	}
	c.Status(status)
	return render(c, "admin_product_form", fiber.Map{
		"Editor":     ed,
		"Slots":      optionSlots(ed.Form),
		"Categories": tree.Flatten(),
		"SizeLabels": sizes,
		"Action":     action,
	})
}

// GET /admin/products/new
func (h *AdminProductHandler) New(c *fiber.Ctx) error {
	f := services.ProductForm{Active: true}
	if sizes, err := h.Ref.SizeLabels(c.UserContext()); err == nil && sizes != "" {
		f.OptionNames = []string{"Size"}
		f.OptionValues = []string{sizes}
	}
	return h.renderEditor(c, fiber.StatusOK, services.ProductEditor{Form: f, Errors: map[string]string{}})
}

// POST /admin/products/preview regenerates the variant table without saving.
func (h *AdminProductHandler) Preview(c *fiber.Ctx) error {
	var f services.ProductForm
	if err := c.BodyParser(&f); err != nil {
		return c.Status(400).SendString("invalid product form")
	}
	return h.renderEditor(c, fiber.StatusOK, h.Products.Preview(f))
}

// GET /admin/products/:id/edit
func (h *AdminProductHandler) Edit(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "Product not found")
	}
	ed, err := h.Products.Load(c.UserContext(), id)
	if errors.Is(err, domain.ErrNotFound) {
		return notFound(c, "Product not found")
	}
	if err != nil {
		applog.Error(c, "admin.products.load.fail", err, map[string]any{"product": id})
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load product"})
	}
	return h.renderEditor(c, fiber.StatusOK, ed)
}

// POST /admin/products
func (h *AdminProductHandler) Create(c *fiber.Ctx) error {
	var f services.ProductForm
	if err := c.BodyParser(&f); err != nil {
		return c.Status(400).SendString("invalid product form")
	}
	f.ID = ""
	return h.save(c, f)
}

// POST /admin/products/:id
func (h *AdminProductHandler) Update(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "Product not found")
	}
	var f services.ProductForm
	if err := c.BodyParser(&f); err != nil {
		return c.Status(400).SendString("invalid product form")
	}
	f.ID = id
	return h.save(c, f)
}

func (h *AdminProductHandler) save(c *fiber.Ctx, f services.ProductForm) error {
	id, err := h.Products.Save(c.UserContext(), f)
	var fe *services.FormError
	switch {
	case errors.As(err, &fe):
		applog.Security(c, "validation.fail", map[string]any{"field": "product", "errors": fe.Fields})
		ed := h.Products.Preview(f)
		for k, v := range fe.Fields {
			ed.Errors[k] = v
		}
		return h.renderEditor(c, fiber.StatusUnprocessableEntity, ed)
	case errors.Is(err, domain.ErrNotFound):
		return notFound(c, "Product not found")
	case err != nil:
		applog.Error(c, "admin.products.save.fail", err, map[string]any{"product": f.ID})
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not save product"})
	}
	applog.Audit(c, "admin.products.save", map[string]any{"product": id, "created": f.ID == ""})
	return c.Redirect("/admin/products/"+id+"/edit", fiber.StatusSeeOther)
}

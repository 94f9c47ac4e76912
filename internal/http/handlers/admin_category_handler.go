package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"threadline/internal/domain"
	applog "threadline/internal/log"
	"threadline/internal/services"
	"threadline/internal/validate"
)

type AdminCategoryHandler struct {
	Categories *services.CategoryService
	Catalog    *services.CatalogService
}

// categoryErrMessage turns a service error into text for the category page.
func categoryErrMessage(err error) string {
	var verr *validate.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, domain.ErrDuplicateSlug):
		return "another category already uses this slug"
	case errors.Is(err, domain.ErrNotFound):
		return "parent category not found"
	case errors.Is(err, domain.ErrInvalidInput):
		return err.Error()
	}
	return ""
}

// GET /admin/categories?q=
func (h *AdminCategoryHandler) Index(c *fiber.Ctx) error {
	return h.renderIndex(c, fiber.StatusOK, "", services.CategoryForm{})
}

func (h *AdminCategoryHandler) renderIndex(c *fiber.Ctx, status int, formErr string, form services.CategoryForm) error {
	tree, err := h.Catalog.Tree(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.categories.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load categories"})
	}
	q := cleanSearch(c.Query("q"))
	rows := tree.Flatten()
	if q != "" {
		rows = tree.Search(q)
	}
	c.Status(status)
	return render(c, "admin_categories", fiber.Map{
		"Rows":    rows,
		"Parents": tree.Flatten(),
		"Q":       q,
		"Err":     formErr,
		"Form":    form,
	})
}

// POST /admin/categories
func (h *AdminCategoryHandler) Create(c *fiber.Ctx) error {
	var f services.CategoryForm
	if err := c.BodyParser(&f); err != nil {
		return c.Status(400).SendString("invalid category form")
	}
	id, err := h.Categories.Create(c.UserContext(), f)
	if err != nil {
		if msg := categoryErrMessage(err); msg != "" {
			applog.Security(c, "validation.fail", map[string]any{"field": "category"})
			return h.renderIndex(c, fiber.StatusUnprocessableEntity, msg, f)
		}
		applog.Error(c, "admin.categories.create.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not save category"})
	}
	applog.Audit(c, "admin.categories.create", map[string]any{"category_id": id, "parent_id": f.ParentID})
	return c.Redirect("/admin/categories", fiber.StatusSeeOther)
}

// POST /admin/categories/:id
func (h *AdminCategoryHandler) Update(c *fiber.Ctx) error {
	id, ok := validate.IntID(c.Params("id"))
	if !ok {
		return notFound(c, "Category not found")
	}
	var f services.CategoryForm
	if err := c.BodyParser(&f); err != nil {
		return c.Status(400).SendString("invalid category form")
	}
	if err := h.Categories.Update(c.UserContext(), id, f); err != nil {
		if msg := categoryErrMessage(err); msg != "" {
			applog.Security(c, "validation.fail", map[string]any{"field": "category", "category_id": id})
			return h.renderIndex(c, fiber.StatusUnprocessableEntity, msg, f)
		}
		applog.Error(c, "admin.categories.update.fail", err, map[string]any{"category_id": id})
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not save category"})
	}
	applog.Audit(c, "admin.categories.update", map[string]any{"category_id": id, "parent_id": f.ParentID})
	return c.Redirect("/admin/categories", fiber.StatusSeeOther)
}

// POST /admin/categories/:id/delete
func (h *AdminCategoryHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.IntID(c.Params("id"))
	if !ok {
		return notFound(c, "Category not found")
	}
	err := h.Categories.Delete(c.UserContext(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return notFound(c, "Category not found")
	case errors.Is(err, domain.ErrInvalidInput):
		return h.renderIndex(c, fiber.StatusUnprocessableEntity, "Move the products out of a top-level category before deleting it", services.CategoryForm{})
	case err != nil:
		applog.Error(c, "admin.categories.delete.fail", err, map[string]any{"category_id": id})
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not delete category"})
	}
	applog.Audit(c, "admin.categories.delete", map[string]any{"category_id": id})
	return c.Redirect("/admin/categories", fiber.StatusSeeOther)
}

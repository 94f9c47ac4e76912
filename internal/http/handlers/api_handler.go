package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"threadline/internal/catalog"
	"threadline/internal/domain"
	applog "threadline/internal/log"
	"threadline/internal/metrics"
	"threadline/internal/services"
	"threadline/internal/validate"
)

// APIHandler is the JSON face of the shop listing and filter state machine.
type APIHandler struct {
	Catalog *services.CatalogService
	Orders  *services.OrderService
}

type listQuery struct {
	SortBy    string `query:"sortBy" json:"sortBy" validate:"omitempty,sortby"`
	SortOrder string `query:"sortOrder" json:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page      int    `query:"page" json:"page" validate:"gte=0"`
	PerPage   int    `query:"perPage" json:"perPage" validate:"gte=0,lte=100"`
}

type listingJSON struct {
	Products   []domain.Product        `json:"products"`
	Total      int                     `json:"total"`
	Page       int                     `json:"page"`
	PerPage    int                     `json:"perPage"`
	TotalPages int                     `json:"totalPages"`
	Applied    catalog.ShopFilters     `json:"applied"`
	Query      catalog.QueryDescriptor `json:"query"`
	URL        string                  `json:"url"`
}

type applyRequest struct {
	Action  string                 `json:"action" validate:"omitempty,oneof=apply reset clear"`
	Applied catalog.ShopFilters    `json:"applied"`
	Pending catalog.PendingFilters `json:"pending"`
}

type applyResponse struct {
	OK      bool                            `json:"ok"`
	Applied catalog.ShopFilters             `json:"applied"`
	Pending catalog.PendingFilters          `json:"pending"`
	Query   catalog.QueryDescriptor         `json:"query"`
	URL     string                          `json:"url"`
	Errors  []catalog.FilterValidationError `json:"errors"`
}

func badRequest(c *fiber.Ctx, err error) error {
	body := fiber.Map{"error": "invalid request"}
	var verr *validate.ValidationError
	if errors.As(err, &verr) {
		body["fields"] = verr.Fields()
	}
	return c.Status(fiber.StatusBadRequest).JSON(body)
}

// GET /api/v1/products
//
// Takes the same query parameters as /shop. Unlike the page, malformed sort
// and paging values are rejected instead of falling back to defaults.
func (h *APIHandler) Products(c *fiber.Ctx) error {
	var lq listQuery
	if err := c.QueryParser(&lq); err != nil {
		return badRequest(c, err)
	}
	if err := validate.Struct(lq); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"field": "listing"})
		return badRequest(c, err)
	}
	applied := catalog.ParseQuery(queryValues(c))
	applied.Search = cleanSearch(applied.Search)

	l, err := h.Catalog.Browse(c.UserContext(), applied)
	if err != nil {
		applog.Error(c, "api.products.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load products"})
	}
	products := l.Products
	if products == nil {
		products = []domain.Product{}
	}
	return c.JSON(listingJSON{
		Products:   products,
		Total:      l.Total,
		Page:       l.Page,
		PerPage:    l.PerPage,
		TotalPages: l.TotalPages,
		Applied:    l.Filters,
		Query:      l.Query,
		URL:        l.Filters.URL("/shop"),
	})
}

// POST /api/v1/filters/apply runs one transition of the filter state machine
// for a client that holds the applied and pending state itself.
func (h *APIHandler) ApplyFilters(c *fiber.Ctx) error {
	var req applyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, err)
	}
	// canonicalize the way a URL round trip would
	applied := catalog.ParseQuery(req.Applied.Values())
	st := catalog.NewFilterState(applied)
	defer st.Close()

	ok := true
	switch req.Action {
	case "reset":
		st.ResetPending()
	case "clear":
		st.ClearAll()
	default:
		stagePending(st, req.Pending.Categories)
		st.SetPriceRange(req.Pending.PriceMin, req.Pending.PriceMax)
		ok = st.Apply()
		if ok {
			metrics.FilterApplies.WithLabelValues("ok").Inc()
		} else {
			metrics.FilterApplies.WithLabelValues("invalid").Inc()
		}
	}

	tree, err := h.Catalog.Tree(c.UserContext())
	if err != nil {
		applog.Error(c, "api.filters.tree.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load categories"})
	}
	next := st.Applied()
	resp := applyResponse{
		OK:      ok,
		Applied: next,
		Pending: st.Pending(),
		Query:   catalog.NormalizeQuery(tree, next),
		URL:     next.URL("/shop"),
		Errors:  st.Errors(),
	}
	if resp.Errors == nil {
		resp.Errors = []catalog.FilterValidationError{}
	}
	if !ok {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(resp)
	}
	return c.JSON(resp)
}

// GET /api/v1/address/:postal fills in city and state on the checkout form.
func (h *APIHandler) Address(c *fiber.Ctx) error {
	area, err := h.Orders.LookupAddress(c.UserContext(), c.Params("postal"))
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid postal code"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown postal code"})
	case err != nil:
		applog.Error(c, "api.address.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not look up address"})
	}
	return c.JSON(area)
}

// GET /api/v1/categories
func (h *APIHandler) Categories(c *fiber.Ctx) error {
	tree, err := h.Catalog.Tree(c.UserContext())
	if err != nil {
		applog.Error(c, "api.categories.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load categories"})
	}
	nested := tree.Nested()
	if nested == nil {
		nested = []catalog.CategoryNode{}
	}
	return c.JSON(fiber.Map{"categories": nested})
}

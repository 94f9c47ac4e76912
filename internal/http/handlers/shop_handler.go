package handlers

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"threadline/internal/catalog"
	applog "threadline/internal/log"
	"threadline/internal/metrics"
	"threadline/internal/services"
	"threadline/internal/validate"
)

const maxSearchLen = 80

type ShopHandler struct {
	Catalog *services.CatalogService
	// Banners feeds the home carousel; nil hides it.
	Banners *services.BannerService
}

// panelNode is one category checkbox in the filter sidebar.
type panelNode struct {
	Slug         string
	Name         string
	Level        int
	ProductCount int
	Checked      bool
	Children     []panelNode
}

// filterPanel is the sidebar state: the pending selection, raw price inputs
// and any validation messages from a failed apply.
type filterPanel struct {
	Nodes    []panelNode
	PriceMin string
	PriceMax string
	Errors   map[string]string
	Dirty    bool
	Applied  string
}

type filterForm struct {
	Action     string   `form:"action"`
	Applied    string   `form:"applied"`
	Categories []string `form:"categories"`
	PriceMin   string   `form:"price_min"`
	PriceMax   string   `form:"price_max"`
}

func queryValues(c *fiber.Ctx) url.Values {
	v, _ := url.ParseQuery(string(c.Request().URI().QueryString()))
	return v
}

func cleanSearch(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > maxSearchLen {
		s = string(r[:maxSearchLen])
	}
	return s
}

func priceText(p *int64) string {
	if p == nil {
		return ""
	}
	return formatCents(*p)
}

// parsePriceRange reads the sidebar price inputs, entered in major units.
func parsePriceRange(minRaw, maxRaw string) (lo, hi *int64, errs []catalog.FilterValidationError) {
	parse := func(raw string) *int64 {
		if strings.TrimSpace(raw) == "" {
			return nil
		}
		c, ok := validate.Price(raw)
		if !ok {
			errs = []catalog.FilterValidationError{{Field: "price", Message: "Enter prices like 20 or 19.99"}}
			return nil
		}
		return &c
	}
	lo = parse(minRaw)
	hi = parse(maxRaw)
	return lo, hi, errs
}

// stagePending makes the pending category selection equal want.
func stagePending(st *catalog.FilterState, want []string) {
	have := map[string]bool{}
	for _, s := range st.Pending().Categories {
		have[s] = true
	}
	keep := map[string]bool{}
	for _, s := range want {
		s = strings.TrimSpace(s)
		if s == "" || keep[s] {
			continue
		}
		keep[s] = true
		if !have[s] {
			st.ToggleCategory(s)
		}
	}
	for s := range have {
		if !keep[s] {
			st.ToggleCategory(s)
		}
	}
}

func toPanelNodes(nodes []catalog.CategoryNode, checked map[string]bool) []panelNode {
	out := make([]panelNode, len(nodes))
	for i, n := range nodes {
		out[i] = panelNode{
			Slug:         n.Slug,
			Name:         n.Name,
			Level:        n.Level,
			ProductCount: n.ProductCount,
			Checked:      checked[n.Slug],
			Children:     toPanelNodes(n.Children, checked),
		}
	}
	return out
}

// keepExcept is the applied state as hidden form fields, minus the params a
// GET form on the page sets itself.
func keepExcept(f catalog.ShopFilters, drop ...string) url.Values {
	v := f.Values()
	for _, k := range drop {
		v.Del(k)
	}
	return v
}

// GET /shop
func (h *ShopHandler) Shop(c *fiber.Ctx) error {
	applied := catalog.ParseQuery(queryValues(c))
	applied.Search = cleanSearch(applied.Search)

	l, err := h.Catalog.Browse(c.UserContext(), applied)
	if err != nil {
		applog.Error(c, "shop.browse.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load products. Please retry."})
	}
	return h.renderShop(c, fiber.StatusOK, l, applied.Staged(), priceText(applied.PriceMin), priceText(applied.PriceMax), nil)
}

// POST /shop/filters
//
// Categories and prices are staged by the sidebar form and only reach the
// URL through apply. An apply that fails validation re-renders the current
// results with the pending selection and the messages.
func (h *ShopHandler) Filters(c *fiber.Ctx) error {
	var f filterForm
	if err := c.BodyParser(&f); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"field": "filters"})
		return c.Status(fiber.StatusBadRequest).SendString("invalid filter form")
	}
	applied := catalog.ParseQueryString(f.Applied)
	applied.Search = cleanSearch(applied.Search)
	st := catalog.NewFilterState(applied)
	defer st.Close()

	switch f.Action {
	case "reset":
		st.ResetPending()
	case "clear":
		st.ClearAll()
	case "apply", "":
		stagePending(st, f.Categories)
		lo, hi, errs := parsePriceRange(f.PriceMin, f.PriceMax)
		if len(errs) == 0 {
			st.SetPriceRange(lo, hi)
			if !st.Apply() {
				errs = st.Errors()
			}
		}
		if len(errs) > 0 {
			metrics.FilterApplies.WithLabelValues("invalid").Inc()
			l, err := h.Catalog.Browse(c.UserContext(), applied)
			if err != nil {
				applog.Error(c, "shop.browse.fail", err, nil)
				return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load products. Please retry."})
			}
			return h.renderShop(c, fiber.StatusUnprocessableEntity, l, st.Pending(), f.PriceMin, f.PriceMax, errs)
		}
		metrics.FilterApplies.WithLabelValues("ok").Inc()
	default:
		applog.Security(c, "validation.fail", map[string]any{"field": "action", "value": f.Action})
		return c.Status(fiber.StatusBadRequest).SendString("unknown filter action")
	}
	return c.Redirect(st.Applied().URL("/shop"), fiber.StatusSeeOther)
}

func (h *ShopHandler) renderShop(c *fiber.Ctx, status int, l services.Listing, pending catalog.PendingFilters, minRaw, maxRaw string, errs []catalog.FilterValidationError) error {
	checked := make(map[string]bool, len(pending.Categories))
	for _, s := range pending.Categories {
		checked[s] = true
	}
	panel := filterPanel{
		Nodes:    toPanelNodes(l.Tree.Nested(), checked),
		PriceMin: minRaw,
		PriceMax: maxRaw,
		Errors:   map[string]string{},
		Dirty:    !pending.Equal(l.Filters.Staged()),
		Applied:  l.Filters.Encode(),
	}
	for _, e := range errs {
		panel.Errors[e.Field] = e.Message
	}

	c.Status(status)
	return render(c, "shop", fiber.Map{
		"Listing":    l,
		"Panel":      panel,
		"KeepSearch": keepExcept(l.Filters, catalog.ParamSearch, catalog.ParamPage),
		"KeepSort":   keepExcept(l.Filters, catalog.ParamSortBy, catalog.ParamSortOrder, catalog.ParamPage),
		"ClearURL":   catalog.DefaultFilters().URL("/shop"),
	})
}

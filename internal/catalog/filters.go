package catalog

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	SortByName  = "name"
	SortByPrice = "price"
	SortByDate  = "date"

	SortAsc  = "asc"
	SortDesc = "desc"

	DefaultSortBy    = SortByDate
	DefaultSortOrder = SortDesc
	DefaultPerPage   = 12
	MaxPerPage       = 100
)

// Query parameter names of the canonical shop URL.
const (
	ParamCategories = "categories"
	ParamPriceMin   = "priceMin"
	ParamPriceMax   = "priceMax"
	ParamSearch     = "search"
	ParamSortBy     = "sortBy"
	ParamSortOrder  = "sortOrder"
	ParamPage       = "page"
	ParamPerPage    = "perPage"
)

// ShopFilters is the applied filter state, the one reflected in the URL.
// Prices are in minor units.
type ShopFilters struct {
	Categories []string `json:"categories,omitempty"`
	PriceMin   *int64   `json:"priceMin,omitempty"`
	PriceMax   *int64   `json:"priceMax,omitempty"`
	Search     string   `json:"search,omitempty"`
	SortBy     string   `json:"sortBy"`
	SortOrder  string   `json:"sortOrder"`
	Page       int      `json:"page"`
	PerPage    int      `json:"perPage"`
}

func DefaultFilters() ShopFilters {
	return ShopFilters{
		SortBy:    DefaultSortBy,
		SortOrder: DefaultSortOrder,
		Page:      1,
		PerPage:   DefaultPerPage,
	}
}

// PendingFilters is the staged subset of ShopFilters.
type PendingFilters struct {
	Categories []string `json:"categories,omitempty"`
	PriceMin   *int64   `json:"priceMin,omitempty"`
	PriceMax   *int64   `json:"priceMax,omitempty"`
}

type FilterValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func validSortBy(s string) bool {
	return s == SortByName || s == SortByPrice || s == SortByDate
}

func validSortOrder(s string) bool {
	return s == SortAsc || s == SortDesc
}

func copyInt(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func sameInt(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copySlugs(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Clone returns a deep copy.
func (f ShopFilters) Clone() ShopFilters {
	f.Categories = copySlugs(f.Categories)
	f.PriceMin = copyInt(f.PriceMin)
	f.PriceMax = copyInt(f.PriceMax)
	return f
}

// Staged extracts the fields that go through the pending stage.
func (f ShopFilters) Staged() PendingFilters {
	return PendingFilters{
		Categories: copySlugs(f.Categories),
		PriceMin:   copyInt(f.PriceMin),
		PriceMax:   copyInt(f.PriceMax),
	}
}

// HasCategory reports whether slug is selected.
func (f ShopFilters) HasCategory(slug string) bool {
	for _, s := range f.Categories {
		if s == slug {
			return true
		}
	}
	return false
}

// IsFiltered is true when any staged field or the search is set.
func (f ShopFilters) IsFiltered() bool {
	return len(f.Categories) > 0 || f.PriceMin != nil || f.PriceMax != nil || f.Search != ""
}

// WithPage returns a copy pointing at page n.
func (f ShopFilters) WithPage(n int) ShopFilters {
	c := f.Clone()
	c.Page = n
	return c
}

// Values serializes the state, leaving out every field equal to its default.
func (f ShopFilters) Values() url.Values {
	v := url.Values{}
	if len(f.Categories) > 0 {
		v.Set(ParamCategories, strings.Join(f.Categories, ","))
	}
	if f.PriceMin != nil {
		v.Set(ParamPriceMin, strconv.FormatInt(*f.PriceMin, 10))
	}
	if f.PriceMax != nil {
		v.Set(ParamPriceMax, strconv.FormatInt(*f.PriceMax, 10))
	}
	if f.Search != "" {
		v.Set(ParamSearch, f.Search)
	}
	if f.SortBy != "" && f.SortBy != DefaultSortBy {
		v.Set(ParamSortBy, f.SortBy)
	}
	if f.SortOrder != "" && f.SortOrder != DefaultSortOrder {
		v.Set(ParamSortOrder, f.SortOrder)
	}
	if f.Page != 0 && f.Page != 1 {
		v.Set(ParamPage, strconv.Itoa(f.Page))
	}
	if f.PerPage != 0 && f.PerPage != DefaultPerPage {
		v.Set(ParamPerPage, strconv.Itoa(f.PerPage))
	}
	return v
}

// Encode is the canonical query string, without the leading '?'.
func (f ShopFilters) Encode() string {
	return f.Values().Encode()
}

// URL joins path and the canonical query string.
func (f ShopFilters) URL(path string) string {
	q := f.Encode()
	if q == "" {
		return path
	}
	return path + "?" + q
}

// ParseQuery is the inverse of Values. Malformed values fall back to their
// defaults. Categories may arrive comma-joined, repeated, or both.
func ParseQuery(v url.Values) ShopFilters {
	f := DefaultFilters()

	seen := make(map[string]bool)
	for _, raw := range v[ParamCategories] {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			f.Categories = append(f.Categories, s)
		}
	}

	f.PriceMin = parsePrice(v.Get(ParamPriceMin))
	f.PriceMax = parsePrice(v.Get(ParamPriceMax))
	f.Search = v.Get(ParamSearch)

	if s := v.Get(ParamSortBy); validSortBy(s) {
		f.SortBy = s
	}
	if s := v.Get(ParamSortOrder); validSortOrder(s) {
		f.SortOrder = s
	}
	if n, err := strconv.Atoi(v.Get(ParamPage)); err == nil && n >= 1 {
		f.Page = n
	}
	if n, err := strconv.Atoi(v.Get(ParamPerPage)); err == nil && n >= 1 {
		f.PerPage = n
	}
	return f
}

// ParseQueryString parses a raw query string such as the one carried in a
// hidden form field.
func ParseQueryString(raw string) ShopFilters {
	v, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return DefaultFilters()
	}
	return ParseQuery(v)
}

func parsePrice(s string) *int64 {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// Equal compares the staged fields. Categories compare as sets.
func (p PendingFilters) Equal(o PendingFilters) bool {
	if !sameInt(p.PriceMin, o.PriceMin) || !sameInt(p.PriceMax, o.PriceMax) {
		return false
	}
	a := make(map[string]bool, len(p.Categories))
	for _, s := range p.Categories {
		a[s] = true
	}
	b := make(map[string]bool, len(o.Categories))
	for _, s := range o.Categories {
		b[s] = true
	}
	if len(a) != len(b) {
		return false
	}
	for s := range a {
		if !b[s] {
			return false
		}
	}
	return true
}

func (p PendingFilters) clone() PendingFilters {
	return PendingFilters{
		Categories: copySlugs(p.Categories),
		PriceMin:   copyInt(p.PriceMin),
		PriceMax:   copyInt(p.PriceMax),
	}
}

// ValidatePending checks the staged fields before they can be applied.
// Only the price range is validated; category slugs are resolved later and
// unknown ones are dropped there. Negative bounds are refused here since
// ParseQuery would drop them from the URL.
func ValidatePending(p PendingFilters) []FilterValidationError {
	if (p.PriceMin != nil && *p.PriceMin < 0) || (p.PriceMax != nil && *p.PriceMax < 0) {
		return []FilterValidationError{{
			Field:   "price",
			Message: "Prices must not be negative",
		}}
	}
	if p.PriceMin != nil && p.PriceMax != nil && *p.PriceMin > *p.PriceMax {
		return []FilterValidationError{{
			Field:   "price",
			Message: "Minimum price must not exceed maximum price",
		}}
	}
	return nil
}

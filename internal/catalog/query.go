package catalog

import "strings"

// SearchFields are the product columns a search term is matched against,
// OR-ed together.
var SearchFields = []string{"name", "slug", "description"}

// QueryDescriptor is what the product listing data source executes. It never
// clamps Page against the result size; an out-of-range page yields an empty
// page from the data source.
type QueryDescriptor struct {
	CategoryIDs        []int64  `json:"categoryIds,omitempty"`
	RestrictCategories bool     `json:"restrictCategories"`
	PriceMin           *int64   `json:"priceMin,omitempty"`
	PriceMax           *int64   `json:"priceMax,omitempty"`
	Search             string   `json:"search,omitempty"`
	SearchFields       []string `json:"searchFields,omitempty"`
	SortBy             string   `json:"sortBy"`
	SortOrder          string   `json:"sortOrder"`
	Page               int      `json:"page"`
	PerPage            int      `json:"perPage"`
}

func (q QueryDescriptor) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PerPage
}

func (q QueryDescriptor) Limit() int {
	return q.PerPage
}

// NormalizeQuery resolves applied against tree. A selection whose slugs are
// all unknown resolves to no ids and leaves the listing unrestricted.
func NormalizeQuery(tree *Tree, applied ShopFilters) QueryDescriptor {
	q := QueryDescriptor{
		PriceMin:  copyInt(applied.PriceMin),
		PriceMax:  copyInt(applied.PriceMax),
		SortBy:    applied.SortBy,
		SortOrder: applied.SortOrder,
		Page:      applied.Page,
		PerPage:   applied.PerPage,
	}

	if len(applied.Categories) > 0 {
		ids := tree.ResolveCategoryIDs(applied.Categories)
		if ids.Len() > 0 {
			q.CategoryIDs = ids.Sorted()
			q.RestrictCategories = true
		}
	}

	if s := strings.TrimSpace(applied.Search); s != "" {
		q.Search = s
		q.SearchFields = append([]string(nil), SearchFields...)
	}

	if !validSortBy(q.SortBy) {
		q.SortBy = DefaultSortBy
	}
	if !validSortOrder(q.SortOrder) {
		q.SortOrder = DefaultSortOrder
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	return q
}

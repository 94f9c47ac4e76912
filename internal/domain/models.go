package domain

import "encoding/json"

type Category struct {
	ID           int64  `db:"id" json:"id"`
	ParentID     int64  `db:"parent_id" json:"parent_id,omitempty"` // 0 for roots
	Slug         string `db:"slug" json:"slug"`
	Name         string `db:"name" json:"name"`
	SortOrder    int    `db:"sort_order" json:"sort_order"`
	ProductCount int    `db:"product_count" json:"product_count"`
	CreatedAt    string `db:"created_at" json:"-"`
	UpdatedAt    string `db:"updated_at" json:"-"`
}

// Product prices are integer minor units (cents).
type Product struct {
	ID           string `db:"id" json:"id"`
	CategoryID   int64  `db:"category_id" json:"category_id"`
	CategoryName string `db:"category_name" json:"category_name,omitempty"`
	Name         string `db:"name" json:"name"`
	Slug         string `db:"slug" json:"slug"`
	Description  string `db:"description" json:"description"`
	BasePrice    int64  `db:"base_price" json:"base_price"`
	ImagesJSON   string `db:"images_json" json:"-"`
	Active       bool   `db:"active" json:"active"`
	CreatedAt    string `db:"created_at" json:"created_at"`
	UpdatedAt    string `db:"updated_at" json:"-"`

	// listing aggregates over active variants
	CategorySlug string `db:"category_slug" json:"category_slug,omitempty"`
	Price        int64  `db:"price" json:"price"`
	Stock        int    `db:"stock" json:"stock"`
	VariantCount int    `db:"variant_count" json:"variant_count"`
}

type ProductOption struct {
	ID        string        `db:"id" json:"id"`
	ProductID string        `db:"product_id" json:"-"`
	Name      string        `db:"name" json:"name"`
	Position  int           `db:"position" json:"-"`
	Values    []OptionValue `db:"-" json:"values"`
}

type OptionValue struct {
	ID       string `db:"id" json:"id"`
	OptionID string `db:"option_id" json:"-"`
	Value    string `db:"value" json:"value"`
	Position int    `db:"position" json:"-"`
}

// Variant is a persisted SKU row. OptionValueIDs is stored as a JSON array.
type Variant struct {
	ID             string `db:"id" json:"id"`
	ProductID      string `db:"product_id" json:"product_id"`
	SKU            string `db:"sku" json:"sku"`
	Price          int64  `db:"price" json:"price"`
	Stock          int    `db:"stock" json:"stock"`
	Combination    string `db:"combination" json:"combination"`
	OptionValueIDs string `db:"option_value_ids" json:"-"`
	IsActive       bool   `db:"is_active" json:"is_active"`
	Position       int    `db:"position" json:"-"`
}

type Size struct {
	ID       int64  `db:"id" json:"id"`
	Label    string `db:"label" json:"label"`
	Position int    `db:"position" json:"position"`
}

type Courier struct {
	ID     int64  `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Fee    int64  `db:"fee" json:"fee"`
	Active bool   `db:"active" json:"active"`
}

type Availability struct {
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty    int    `json:"qty,omitempty"`
}

// Images decodes ImagesJSON; malformed data yields no images.
func (p Product) Images() []string {
	var out []string
	if p.ImagesJSON == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(p.ImagesJSON), &out); err != nil {
		return nil
	}
	return out
}

// ValueIDs decodes OptionValueIDs.
func (v Variant) ValueIDs() []string {
	var out []string
	if v.OptionValueIDs == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(v.OptionValueIDs), &out); err != nil {
		return nil
	}
	return out
}

// Banner is one slide of the home page carousel. StartsAt and EndsAt are
// optional YYYY-MM-DD dates; a banner shows from StartsAt up to but not
// including EndsAt.
type Banner struct {
	ID        int64  `db:"id" json:"id"`
	Title     string `db:"title" json:"title"`
	Subtitle  string `db:"subtitle" json:"subtitle,omitempty"`
	ImageURL  string `db:"image_url" json:"image_url"`
	LinkURL   string `db:"link_url" json:"link_url,omitempty"`
	SortOrder int    `db:"sort_order" json:"sort_order"`
	Active    bool   `db:"active" json:"active"`
	StartsAt  string `db:"starts_at" json:"starts_at,omitempty"`
	EndsAt    string `db:"ends_at" json:"ends_at,omitempty"`
	CreatedAt string `db:"created_at" json:"-"`
}

// PostalArea maps the first three digits of a ZIP code to the city and
// state it serves.
type PostalArea struct {
	Prefix string `db:"prefix" json:"prefix"`
	City   string `db:"city" json:"city"`
	Region string `db:"region" json:"region"`
}

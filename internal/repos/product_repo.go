package repos

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"threadline/internal/catalog"
	"threadline/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

// listing exposes the product columns plus the aggregates over active
// variants. The shop price is the cheapest active variant, falling back to
// the base price for products with no variants.
const listing = `
  SELECT * FROM (
    SELECT
      p.id, p.category_id, c.name AS category_name, c.slug AS category_slug,
      p.name, p.slug, p.description, p.base_price, p.images_json, p.active,
      COALESCE(p.created_at,'') AS created_at,
      COALESCE(p.updated_at,'') AS updated_at,
      COALESCE((SELECT MIN(v.price) FROM variants v WHERE v.product_id = p.id AND v.is_active = 1), p.base_price) AS price,
      COALESCE((SELECT SUM(v.stock) FROM variants v WHERE v.product_id = p.id AND v.is_active = 1), 0) AS stock,
      (SELECT COUNT(*) FROM variants v WHERE v.product_id = p.id AND v.is_active = 1) AS variant_count
    FROM products p
    JOIN categories c ON c.id = p.category_id
  ) lp`

// searchColumns whitelists the fields a search term may touch.
var searchColumns = map[string]string{
	"name":        "LOWER(lp.name)",
	"slug":        "LOWER(lp.slug)",
	"description": "LOWER(lp.description)",
}

var sortColumns = map[string]string{
	catalog.SortByName:  "LOWER(lp.name)",
	catalog.SortByPrice: "lp.price",
	catalog.SortByDate:  "lp.created_at",
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

type listFilter struct {
	q             catalog.QueryDescriptor
	includeHidden bool
}

func (f listFilter) where() (string, []any) {
	conds := []string{}
	args := []any{}
	if !f.includeHidden {
		conds = append(conds, `lp.active = 1`)
	}
	if f.q.RestrictCategories {
		if len(f.q.CategoryIDs) == 0 {
			conds = append(conds, `1 = 0`)
		} else {
			conds = append(conds, `lp.category_id IN (?)`)
			args = append(args, f.q.CategoryIDs)
		}
	}
	if f.q.PriceMin != nil {
		conds = append(conds, `lp.price >= ?`)
		args = append(args, *f.q.PriceMin)
	}
	if f.q.PriceMax != nil {
		conds = append(conds, `lp.price <= ?`)
		args = append(args, *f.q.PriceMax)
	}
	if term := strings.TrimSpace(f.q.Search); term != "" {
		fields := f.q.SearchFields
		if len(fields) == 0 {
			fields = catalog.SearchFields
		}
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		var ors []string
		for _, name := range fields {
			col, ok := searchColumns[name]
			if !ok {
				continue
			}
			ors = append(ors, col+` LIKE ? ESCAPE '\'`)
			args = append(args, like)
		}
		if len(ors) > 0 {
			conds = append(conds, "("+strings.Join(ors, " OR ")+")")
		}
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderBy(q catalog.QueryDescriptor) string {
	col, ok := sortColumns[q.SortBy]
	if !ok {
		col = sortColumns[catalog.DefaultSortBy]
	}
	dir := "DESC"
	if q.SortOrder == catalog.SortAsc {
		dir = "ASC"
	}
	return " ORDER BY " + col + " " + dir + ", lp.id ASC"
}

func (r *ProductRepo) list(ctx context.Context, f listFilter) ([]domain.Product, int, error) {
	where, args := f.where()

	countSQL, countArgs, err := sqlx.In(`SELECT COUNT(*) FROM (`+listing+where+`)`, args...)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(countSQL), countArgs...); err != nil {
		return nil, 0, err
	}

	pageSQL, pageArgs, err := sqlx.In(listing+where+orderBy(f.q)+` LIMIT ? OFFSET ?`,
		append(args, f.q.Limit(), f.q.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	out := []domain.Product{}
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(pageSQL), pageArgs...); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// List runs a normalized shop query: one page of active products and the
// total number of matches. Pages past the end come back empty.
func (r *ProductRepo) List(ctx context.Context, q catalog.QueryDescriptor) ([]domain.Product, int, error) {
	return r.list(ctx, listFilter{q: q})
}

// AdminList is List including inactive products, newest first.
func (r *ProductRepo) AdminList(ctx context.Context, search string, page, perPage int) ([]domain.Product, int, error) {
	if page < 1 {
		page = 1
	}
	q := catalog.QueryDescriptor{
		Search:    search,
		SortBy:    catalog.SortByDate,
		SortOrder: catalog.SortDesc,
		Page:      page,
		PerPage:   perPage,
	}
	return r.list(ctx, listFilter{q: q, includeHidden: true})
}

func (r *ProductRepo) BySlug(ctx context.Context, slug string) (domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, listing+` WHERE lp.slug = ? AND lp.active = 1`, strings.ToLower(strings.TrimSpace(slug)))
	if errors.Is(err, sql.ErrNoRows) {
		return p, domain.ErrNotFound
	}
	return p, err
}

func (r *ProductRepo) ByID(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, listing+` WHERE lp.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return p, domain.ErrNotFound
	}
	return p, err
}

// Options loads the product's options with their values, both in position order.
func (r *ProductRepo) Options(ctx context.Context, productID string) ([]domain.ProductOption, error) {
	opts := []domain.ProductOption{}
	if err := r.db.SelectContext(ctx, &opts, `
	  SELECT id, product_id, name, position
	  FROM product_options
	  WHERE product_id = ?
	  ORDER BY position, id
	`, productID); err != nil {
		return nil, err
	}
	if len(opts) == 0 {
		return opts, nil
	}

	var values []domain.OptionValue
	if err := r.db.SelectContext(ctx, &values, `
	  SELECT ov.id, ov.option_id, ov.value, ov.position
	  FROM option_values ov
	  JOIN product_options po ON po.id = ov.option_id
	  WHERE po.product_id = ?
	  ORDER BY ov.position, ov.id
	`, productID); err != nil {
		return nil, err
	}
	byOption := make(map[string]int, len(opts))
	for i, o := range opts {
		byOption[o.ID] = i
	}
	for _, v := range values {
		if i, ok := byOption[v.OptionID]; ok {
			opts[i].Values = append(opts[i].Values, v)
		}
	}
	return opts, nil
}

// Variants lists a product's variant rows in generation order.
func (r *ProductRepo) Variants(ctx context.Context, productID string, activeOnly bool) ([]domain.Variant, error) {
	q := `
	  SELECT id, product_id, sku, price, stock, combination, option_value_ids, is_active, position
	  FROM variants
	  WHERE product_id = ?`
	if activeOnly {
		q += ` AND is_active = 1`
	}
	q += ` ORDER BY position, id`
	out := []domain.Variant{}
	err := r.db.SelectContext(ctx, &out, q, productID)
	return out, err
}

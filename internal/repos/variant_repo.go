package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"threadline/internal/domain"
	"threadline/internal/variants"
)

// ProductDraft is everything the product form saves in one go. Options carry
// their values; option and value ids must already be assigned.
type ProductDraft struct {
	Product  domain.Product
	Options  []domain.ProductOption
	Variants []domain.Variant
}

type VariantRepo struct{ db *sqlx.DB }

func NewVariantRepo(db *sqlx.DB) *VariantRepo { return &VariantRepo{db: db} }

func (r *VariantRepo) BySKU(ctx context.Context, sku string) (domain.Variant, error) {
	var v domain.Variant
	err := r.db.GetContext(ctx, &v, `
	  SELECT id, product_id, sku, price, stock, combination, option_value_ids, is_active, position
	  FROM variants WHERE LOWER(sku) = LOWER(?)
	`, strings.TrimSpace(sku))
	if errors.Is(err, sql.ErrNoRows) {
		return v, domain.ErrNotFound
	}
	return v, err
}

func (r *VariantRepo) ByID(ctx context.Context, id string) (domain.Variant, error) {
	var v domain.Variant
	err := r.db.GetContext(ctx, &v, `
	  SELECT id, product_id, sku, price, stock, combination, option_value_ids, is_active, position
	  FROM variants WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return v, domain.ErrNotFound
	}
	return v, err
}

// SaveProduct writes the product, its options and its variants in one
// transaction and returns the product id. Variants are matched to existing
// rows by combination label so their ids (and cart lines) survive a
// regeneration; rows whose combination vanished are deleted.
func (r *VariantRepo) SaveProduct(ctx context.Context, d ProductDraft) (string, error) {
	if dups := duplicateSKUs(d.Variants); len(dups) > 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrDuplicateSKU, strings.Join(dups, ", "))
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	p := d.Product
	if p.ID == "" {
		p.ID = uuid.NewString()
		if _, err := tx.ExecContext(ctx, `
		  INSERT INTO products(id, category_id, name, slug, description, base_price, images_json, active, created_at)
		  VALUES(?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		`, p.ID, p.CategoryID, p.Name, p.Slug, p.Description, p.BasePrice, imagesOrEmpty(p.ImagesJSON), p.Active); err != nil {
			return "", mapUniqueErr(err)
		}
	} else {
		res, err := tx.ExecContext(ctx, `
		  UPDATE products
		  SET category_id = ?, name = ?, slug = ?, description = ?, base_price = ?, images_json = ?, active = ?,
		      updated_at = CURRENT_TIMESTAMP
		  WHERE id = ?
		`, p.CategoryID, p.Name, p.Slug, p.Description, p.BasePrice, imagesOrEmpty(p.ImagesJSON), p.Active, p.ID)
		if err != nil {
			return "", mapUniqueErr(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return "", domain.ErrNotFound
		}
	}

	if taken, err := skusTakenElsewhere(ctx, tx, p.ID, d.Variants); err != nil {
		return "", err
	} else if len(taken) > 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrDuplicateSKU, strings.Join(taken, ", "))
	}

	if err := replaceOptions(ctx, tx, p.ID, d.Options); err != nil {
		return "", err
	}
	if err := syncVariants(ctx, tx, p.ID, d.Variants); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return p.ID, nil
}

func imagesOrEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "[]"
	}
	return s
}

func duplicateSKUs(rows []domain.Variant) []string {
	gen := make([]variants.GeneratedVariant, len(rows))
	for i, v := range rows {
		gen[i] = variants.GeneratedVariant{SKU: strings.TrimSpace(v.SKU)}
	}
	return variants.DuplicateSKUs(gen)
}

func skusTakenElsewhere(ctx context.Context, tx *sqlx.Tx, productID string, rows []domain.Variant) ([]string, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	skus := make([]string, len(rows))
	for i, v := range rows {
		skus[i] = strings.ToLower(strings.TrimSpace(v.SKU))
	}
	q, args, err := sqlx.In(`SELECT sku FROM variants WHERE product_id <> ? AND LOWER(sku) IN (?) ORDER BY sku`, productID, skus)
	if err != nil {
		return nil, err
	}
	var taken []string
	if err := tx.SelectContext(ctx, &taken, tx.Rebind(q), args...); err != nil {
		return nil, err
	}
	return taken, nil
}

func replaceOptions(ctx context.Context, tx *sqlx.Tx, productID string, opts []domain.ProductOption) error {
	if _, err := tx.ExecContext(ctx, `
	  DELETE FROM option_values
	  WHERE option_id IN (SELECT id FROM product_options WHERE product_id = ?)
	`, productID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM product_options WHERE product_id = ?`, productID); err != nil {
		return err
	}
	for i, o := range opts {
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, `
		  INSERT INTO product_options(id, product_id, name, position) VALUES(?, ?, ?, ?)
		`, o.ID, productID, o.Name, i); err != nil {
			return err
		}
		for j, v := range o.Values {
			if v.ID == "" {
				v.ID = uuid.NewString()
			}
			if _, err := tx.ExecContext(ctx, `
			  INSERT INTO option_values(id, option_id, value, position) VALUES(?, ?, ?, ?)
			`, v.ID, o.ID, v.Value, j); err != nil {
				return err
			}
		}
	}
	return nil
}

func syncVariants(ctx context.Context, tx *sqlx.Tx, productID string, rows []domain.Variant) error {
	type existing struct {
		ID          string `db:"id"`
		Combination string `db:"combination"`
	}
	var prev []existing
	if err := tx.SelectContext(ctx, &prev, `SELECT id, combination FROM variants WHERE product_id = ?`, productID); err != nil {
		return err
	}
	keep := make(map[string]string, len(prev))
	for _, e := range prev {
		keep[e.Combination] = e.ID
	}

	wanted := make(map[string]bool, len(rows))
	for _, v := range rows {
		wanted[v.Combination] = true
	}
	for _, e := range prev {
		if wanted[e.Combination] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE variant_id = ?`, e.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM variants WHERE id = ?`, e.ID); err != nil {
			return err
		}
		delete(keep, e.Combination)
	}

	// park surviving SKUs on their ids so swapped SKUs don't collide mid-update
	if _, err := tx.ExecContext(ctx, `UPDATE variants SET sku = id WHERE product_id = ?`, productID); err != nil {
		return err
	}

	for i, v := range rows {
		ids := v.OptionValueIDs
		if ids == "" {
			ids = "[]"
		}
		if id, ok := keep[v.Combination]; ok {
			if _, err := tx.ExecContext(ctx, `
			  UPDATE variants
			  SET sku = ?, price = ?, stock = ?, option_value_ids = ?, is_active = ?, position = ?,
			      updated_at = CURRENT_TIMESTAMP
			  WHERE id = ?
			`, strings.TrimSpace(v.SKU), v.Price, v.Stock, ids, v.IsActive, i, id); err != nil {
				return mapUniqueErr(err)
			}
			continue
		}
		id := v.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, `
		  INSERT INTO variants(id, product_id, sku, price, stock, combination, option_value_ids, is_active, position, updated_at)
		  VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		`, id, productID, strings.TrimSpace(v.SKU), v.Price, v.Stock, v.Combination, ids, v.IsActive, i); err != nil {
			return mapUniqueErr(err)
		}
	}
	return nil
}

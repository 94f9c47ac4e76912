package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"threadline/internal/domain"
)

type CategoryRepo struct{ db *sqlx.DB }

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo { return &CategoryRepo{db: db} }

// List returns every category with its own count of active products.
// Subtree totals are computed by the catalog tree.
func (r *CategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := r.db.SelectContext(ctx, &out, `
	  SELECT
	    c.id,
	    COALESCE(c.parent_id, 0) AS parent_id,
	    c.slug,
	    c.name,
	    c.sort_order,
	    (SELECT COUNT(*) FROM products p WHERE p.category_id = c.id AND p.active = 1) AS product_count,
	    COALESCE(c.created_at,'') AS created_at,
	    COALESCE(c.updated_at,'') AS updated_at
	  FROM categories c
	  ORDER BY c.sort_order, LOWER(c.name)
	`)
	return out, err
}

func (r *CategoryRepo) BySlug(ctx context.Context, slug string) (domain.Category, error) {
	var c domain.Category
	err := r.db.GetContext(ctx, &c, `
	  SELECT id, COALESCE(parent_id, 0) AS parent_id, slug, name, sort_order,
	         0 AS product_count,
	         COALESCE(created_at,'') AS created_at, COALESCE(updated_at,'') AS updated_at
	  FROM categories WHERE slug = ?
	`, strings.ToLower(strings.TrimSpace(slug)))
	if errors.Is(err, sql.ErrNoRows) {
		return c, domain.ErrNotFound
	}
	return c, err
}

func (r *CategoryRepo) ByID(ctx context.Context, id int64) (domain.Category, error) {
	var c domain.Category
	err := r.db.GetContext(ctx, &c, `
	  SELECT id, COALESCE(parent_id, 0) AS parent_id, slug, name, sort_order,
	         0 AS product_count,
	         COALESCE(created_at,'') AS created_at, COALESCE(updated_at,'') AS updated_at
	  FROM categories WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return c, domain.ErrNotFound
	}
	return c, err
}

func nullParent(id int64) any {
	if id <= 0 {
		return nil
	}
	return id
}

// Create inserts c and returns its new id.
func (r *CategoryRepo) Create(ctx context.Context, c domain.Category) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	  INSERT INTO categories(parent_id, slug, name, sort_order, created_at)
	  VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, nullParent(c.ParentID), c.Slug, c.Name, c.SortOrder)
	if err != nil {
		return 0, mapUniqueErr(err)
	}
	return res.LastInsertId()
}

// Update rewrites name, slug, parent and order. A parent inside the node's
// own subtree is rejected by the caller.
func (r *CategoryRepo) Update(ctx context.Context, c domain.Category) error {
	res, err := r.db.ExecContext(ctx, `
	  UPDATE categories
	  SET parent_id = ?, slug = ?, name = ?, sort_order = ?, updated_at = CURRENT_TIMESTAMP
	  WHERE id = ?
	`, nullParent(c.ParentID), c.Slug, c.Name, c.SortOrder, c.ID)
	if err != nil {
		return mapUniqueErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a category. Children move up to its parent; so do its
// products. A root that still holds products cannot be deleted.
func (r *CategoryRepo) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var parent sql.NullInt64
	if err := tx.GetContext(ctx, &parent, `SELECT parent_id FROM categories WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	var products int
	if err := tx.GetContext(ctx, &products, `SELECT COUNT(*) FROM products WHERE category_id = ?`, id); err != nil {
		return err
	}
	if products > 0 {
		if !parent.Valid {
			return fmt.Errorf("%w: category still has %d products", domain.ErrInvalidInput, products)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE products SET category_id = ?, updated_at = CURRENT_TIMESTAMP WHERE category_id = ?`, parent.Int64, id); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE categories SET parent_id = ?, updated_at = CURRENT_TIMESTAMP WHERE parent_id = ?`, parent, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// mapUniqueErr turns sqlite UNIQUE violations into domain errors.
func mapUniqueErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return err
	}
	switch {
	case strings.Contains(msg, "sku"):
		return fmt.Errorf("%w: %v", domain.ErrDuplicateSKU, err)
	case strings.Contains(msg, "slug"):
		return fmt.Errorf("%w: %v", domain.ErrDuplicateSlug, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
}

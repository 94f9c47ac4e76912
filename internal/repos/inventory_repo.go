package repos

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"threadline/internal/domain"
)

type InventoryRepo struct{ db *sqlx.DB }

func NewInventoryRepo(db *sqlx.DB) *InventoryRepo { return &InventoryRepo{db: db} }

// Row used by admin inventory pages
type InventoryRow struct {
	VariantID   string `db:"variant_id"`
	ProductName string `db:"product_name"`
	SKU         string `db:"sku"`
	Combination string `db:"combination"`
	Stock       int    `db:"stock"`
	IsActive    bool   `db:"is_active"`
}

// ListAll returns every variant with its product name (for /admin/inventory)
func (r *InventoryRepo) ListAll() ([]InventoryRow, error) {
	rows := []InventoryRow{}
	err := r.db.Select(&rows, `
		SELECT v.id AS variant_id, p.name AS product_name, v.sku, v.combination, v.stock, v.is_active
		FROM variants v
		JOIN products p ON p.id = v.product_id
		ORDER BY LOWER(p.name), v.position
	`)
	return rows, err
}

// Stock returns current stock for a variant.
func (r *InventoryRepo) Stock(variantID string) (int, error) {
	var qty int
	err := r.db.Get(&qty, `SELECT stock FROM variants WHERE id = ?`, variantID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	return qty, err
}

// StockBySKU looks a variant up by SKU, case-insensitively.
func (r *InventoryRepo) StockBySKU(sku string) (int, error) {
	var qty int
	err := r.db.Get(&qty, `SELECT stock FROM variants WHERE LOWER(sku) = LOWER(?) AND is_active = 1`, sku)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	return qty, err
}

// SetStock overwrites the stock level of one variant.
func (r *InventoryRepo) SetStock(variantID string, qty int) error {
	if qty < 0 {
		return fmt.Errorf("%w: negative stock", domain.ErrInvalidInput)
	}
	res, err := r.db.Exec(`UPDATE variants SET stock = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, qty, variantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Decrement atomically subtracts "by" units if enough stock exists.
func (r *InventoryRepo) Decrement(variantID string, by int) error {
	return decrementStock(r.db, variantID, by)
}

func decrementStock(ex sqlx.Execer, variantID string, by int) error {
	res, err := ex.Exec(`
		UPDATE variants
		SET stock = stock - ?
		WHERE id = ? AND stock >= ?
	`, by, variantID, by)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: variant %s", domain.ErrInsufficientStock, variantID)
	}
	return nil
}

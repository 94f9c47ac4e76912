package repos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

type CartRepo struct{ db *sqlx.DB }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{db: db} }

// CartItemRow is one cart line joined with its variant and product. Money is
// in cents. Price is the variant's current price; totals use it, never the
// price captured when the line was added.
type CartItemRow struct {
	VariantID   string `db:"variant_id"`
	ProductName string `db:"product_name"`
	ProductSlug string `db:"product_slug"`
	SKU         string `db:"sku"`
	Combination string `db:"combination"`
	Qty         int    `db:"qty"`
	PriceAtAdd  int64  `db:"price_at_add"`
	Price       int64  `db:"price"`
	Subtotal    int64  `db:"subtotal"`
}

func (r *CartRepo) EnsureCart(sessionID string) (string, error) {
	var cartID string
	if err := r.db.Get(&cartID, `SELECT id FROM carts WHERE session_id = ?`, sessionID); err == nil {
		return cartID, nil
	}
	_, err := r.db.Exec(`INSERT INTO carts(id,session_id,updated_at) VALUES(?,?,?)`,
		sessionID, sessionID, time.Now().Format(time.RFC3339))
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

func (r *CartRepo) UpsertItem(cartID, variantID string, qty int, price int64) error {
	_, err := r.db.Exec(`
		INSERT INTO cart_items(cart_id,variant_id,qty,price_at_add,created_at)
		VALUES(?,?,?,?,CURRENT_TIMESTAMP)
		ON CONFLICT(cart_id,variant_id) DO UPDATE
		SET qty = cart_items.qty + excluded.qty, updated_at = CURRENT_TIMESTAMP
	`, cartID, variantID, qty, price)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`UPDATE carts SET updated_at = ? WHERE id = ?`, time.Now().Format(time.RFC3339), cartID)
	return err
}

func (r *CartRepo) RemoveItem(cartID, variantID string) error {
	_, err := r.db.Exec(`DELETE FROM cart_items WHERE cart_id = ? AND variant_id = ?`, cartID, variantID)
	return err
}

const cartLines = `
	  SELECT ci.variant_id, p.name AS product_name, p.slug AS product_slug, v.sku, v.combination,
	         ci.qty, ci.price_at_add, v.price, (ci.qty*v.price) AS subtotal
	  FROM cart_items ci
	  JOIN variants v ON v.id = ci.variant_id
	  JOIN products p ON p.id = v.product_id
	  WHERE ci.cart_id = ?
	  ORDER BY ci.created_at, v.sku`

func (r *CartRepo) View(cartID string) ([]CartItemRow, int64, error) {
	rows := []CartItemRow{}
	if err := r.db.Select(&rows, cartLines, cartID); err != nil {
		return nil, 0, err
	}
	var total int64
	for _, it := range rows {
		total += it.Subtotal
	}
	return rows, total, nil
}

func (r *CartRepo) Clear(cartID string) error {
	_, err := r.db.Exec(`DELETE FROM cart_items WHERE cart_id = ?`, cartID)
	return err
}

// MergeForLogin folds the anonymous session cart into the user's cart.
func (r *CartRepo) MergeForLogin(userID, sid string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var anonID, userCartID sql.NullString

	// Find anon cart by session
	if err := tx.Get(&anonID, `SELECT id FROM carts WHERE session_id=? AND user_id IS NULL`, sid); err != nil && err != sql.ErrNoRows {
		return err
	}
	// Find user cart
	if err := tx.Get(&userCartID, `SELECT id FROM carts WHERE user_id=? ORDER BY updated_at DESC LIMIT 1`, userID); err != nil && err != sql.ErrNoRows {
		return err
	}

	// If no anon cart, nothing to do.
	if !anonID.Valid {
		return tx.Commit()
	}

	// If user has no cart yet, just convert anon cart into user cart.
	if !userCartID.Valid {
		if _, err := tx.Exec(`UPDATE carts SET user_id=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, userID, anonID.String); err != nil {
			return err
		}
		return tx.Commit()
	}

	// Merge: move items from anon cart to user cart (upsert quantities)
	type line struct {
		VariantID  string `db:"variant_id"`
		Qty        int    `db:"qty"`
		PriceAtAdd int64  `db:"price_at_add"`
	}
	var lines []line
	if err := tx.Select(&lines, `SELECT variant_id, qty, price_at_add FROM cart_items WHERE cart_id=?`, anonID.String); err != nil {
		return err
	}

	for _, it := range lines {
		_, err := tx.Exec(`
			INSERT INTO cart_items(cart_id, variant_id, qty, price_at_add, created_at, updated_at)
			VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
			ON CONFLICT(cart_id, variant_id) DO UPDATE SET
			  qty = qty + excluded.qty,
			  updated_at = CURRENT_TIMESTAMP
		`, userCartID.String, it.VariantID, it.Qty, it.PriceAtAdd)
		if err != nil {
			return err
		}
	}

	// Drop anon cart
	if _, err := tx.Exec(`DELETE FROM cart_items WHERE cart_id=?`, anonID.String); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM carts WHERE id=?`, anonID.String); err != nil {
		return err
	}

	// Point the session at the user's cart so future adds land there
	if _, err := tx.Exec(`UPDATE carts SET session_id=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, sid, userCartID.String); err != nil {
		return err
	}

	return tx.Commit()
}

package repos

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"threadline/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

// ---------- Admin list summary ----------
type OrderSummary struct {
	ID            string `db:"id"`
	SessionID     string `db:"session_id"`
	CustomerName  string `db:"customer_name"`
	CustomerEmail string `db:"customer_email"`
	Total         int64  `db:"total"`
	Status        string `db:"status"`
	CreatedAt     string `db:"created_at"`
}

// ---------- Order detail (used by /order/:id) ----------
type OrderRow struct {
	ID            string `db:"id"`
	SessionID     string `db:"session_id"`
	UserID        string `db:"user_id"`
	PostalCode    string `db:"postal_code"`
	City          string `db:"city"`
	Region        string `db:"region"`
	CourierName   string `db:"courier_name"`
	ShippingFee   int64  `db:"shipping_fee"`
	PaymentMethod string `db:"payment_method"`
	Customer      string `db:"customer_name"`
	Email         string `db:"customer_email"`
	Subtotal      int64  `db:"subtotal"`
	Total         int64  `db:"total"`
	Status        string `db:"status"`
	CreatedAt     string `db:"created_at"`
}

type OrderItemRow struct {
	ProductName string `db:"product_name"`
	SKU         string `db:"sku"`
	Combination string `db:"combination"`
	Qty         int    `db:"qty"`
	Price       int64  `db:"price"`
	Subtotal    int64  `db:"subtotal"`
}

// NewOrder is a fully priced order ready to be written.
type NewOrder struct {
	ID            string
	SessionID     string
	CartID        string
	PostalCode    string
	City          string
	Region        string
	Courier       domain.Courier
	PaymentMethod string
	Customer      string
	Email         string
	Subtotal      int64
	Total         int64
	Status        string
	Lines         []CartItemRow
}

// Place decrements stock for every line, writes the order and its items and
// empties the cart, all in one transaction. Any line short of stock aborts
// the whole order with domain.ErrInsufficientStock.
func (r *OrderRepo) Place(o NewOrder) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, it := range o.Lines {
		if err := decrementStock(tx, it.VariantID, it.Qty); err != nil {
			return fmt.Errorf("%w (%s)", err, it.SKU)
		}
	}

	if _, err := tx.Exec(`
	  INSERT INTO orders
	    (id, session_id, postal_code, city, region, courier_id, courier_name, shipping_fee, payment_method,
	     customer_name, customer_email, subtotal, total, status, created_at)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, o.ID, o.SessionID, o.PostalCode, o.City, o.Region, o.Courier.ID, o.Courier.Name, o.Courier.Fee, o.PaymentMethod,
		o.Customer, o.Email, o.Subtotal, o.Total, o.Status); err != nil {
		return err
	}

	for _, it := range o.Lines {
		if _, err := tx.Exec(`
		  INSERT INTO order_items(order_id, variant_id, product_name, sku, combination, qty, price)
		  VALUES(?, ?, ?, ?, ?, ?, ?)
		`, o.ID, it.VariantID, it.ProductName, it.SKU, it.Combination, it.Qty, it.Price); err != nil {
			return err
		}
	}

	if o.CartID != "" {
		if _, err := tx.Exec(`DELETE FROM cart_items WHERE cart_id = ?`, o.CartID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ---------- Used by order page/admin ----------

func (r *OrderRepo) Get(orderID string) (OrderRow, []OrderItemRow, error) {
	var o OrderRow
	if err := r.db.Get(&o, `
		SELECT o.id, COALESCE(o.session_id,'') AS session_id, COALESCE(s.user_id,'') AS user_id,
		       COALESCE(o.postal_code,'') AS postal_code, o.city, o.region,
		       COALESCE(o.courier_name,'') AS courier_name,
		       o.shipping_fee, o.payment_method,
		       COALESCE(o.customer_name,'') AS customer_name, COALESCE(o.customer_email,'') AS customer_email,
		       o.subtotal, o.total, o.status, o.created_at
		FROM orders o
		LEFT JOIN sessions s ON s.id = o.session_id
		WHERE o.id = ?
	`, orderID); err != nil {
		return OrderRow{}, nil, err
	}

	items := []OrderItemRow{}
	if err := r.db.Select(&items, `
		SELECT product_name, sku, combination, qty, price, (qty * price) AS subtotal
		FROM order_items
		WHERE order_id = ?
		ORDER BY product_name, sku
	`, orderID); err != nil {
		return OrderRow{}, nil, err
	}

	return o, items, nil
}

func (r *OrderRepo) ListLatest(limit int) ([]OrderSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []OrderSummary{}
	err := r.db.Select(&out, `
		SELECT id, COALESCE(session_id,'') AS session_id, COALESCE(customer_name,'') AS customer_name,
		       COALESCE(customer_email,'') AS customer_email, total, status, created_at
		FROM orders
		ORDER BY datetime(created_at) DESC
		LIMIT ?
	`, limit)
	return out, err
}

// ListByUser returns orders for a given user via session linkage.
func (r *OrderRepo) ListByUser(userID string) ([]OrderSummary, error) {
	out := []OrderSummary{}
	err := r.db.Select(&out, `
		SELECT o.id, COALESCE(o.session_id,'') AS session_id, COALESCE(o.customer_name,'') AS customer_name,
		       COALESCE(o.customer_email,'') AS customer_email, o.total, o.status, o.created_at
		FROM orders o
		JOIN sessions s ON s.id = o.session_id
		WHERE s.user_id = ?
		ORDER BY datetime(o.created_at) DESC
	`, userID)
	return out, err
}

// ListBySession returns orders tied to a given session id (helps show anon or pre-login orders).
func (r *OrderRepo) ListBySession(sessionID string) ([]OrderSummary, error) {
	out := []OrderSummary{}
	err := r.db.Select(&out, `
		SELECT id, COALESCE(session_id,'') AS session_id, COALESCE(customer_name,'') AS customer_name,
		       COALESCE(customer_email,'') AS customer_email, total, status, created_at
		FROM orders
		WHERE session_id = ?
		ORDER BY datetime(created_at) DESC
	`, sessionID)
	return out, err
}

func (r *OrderRepo) UpdateStatus(id, status string) error {
	res, err := r.db.Exec(`UPDATE orders SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

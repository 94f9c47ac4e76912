package repos

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"threadline/internal/domain"
	"threadline/internal/variants"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one connection: ":memory:" databases are per connection, and sqlite
	// serializes writers anyway
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Seed the demo catalogue if DB is empty (categories/products/variants)
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	// Reference data (idempotent; safe to run every start)
	if err := seedReferenceData(db); err != nil {
		return nil, err
	}
	// Ensure users exist (idempotent; safe to run every start)
	if err := seedUsers(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Categories (adjacency list; roots have parent_id NULL)
CREATE TABLE IF NOT EXISTS categories(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  parent_id INTEGER NULL REFERENCES categories(id) ON DELETE SET NULL,
  slug TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  sort_order INTEGER NOT NULL DEFAULT 0,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_categories_parent ON categories(parent_id);

-- Products (prices in cents)
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  base_price INTEGER NOT NULL CHECK (base_price >= 0),
  images_json TEXT NOT NULL DEFAULT '[]',
  active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_category   ON products(category_id);
CREATE INDEX IF NOT EXISTS idx_products_name       ON products(LOWER(name));
CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at);

-- Options and their values
CREATE TABLE IF NOT EXISTS product_options(
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_options_product ON product_options(product_id);

CREATE TABLE IF NOT EXISTS option_values(
  id TEXT PRIMARY KEY,
  option_id TEXT NOT NULL REFERENCES product_options(id) ON DELETE CASCADE,
  value TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_values_option ON option_values(option_id);

-- Variants (one row per option combination; stock lives here)
CREATE TABLE IF NOT EXISTS variants(
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  sku TEXT NOT NULL,
  price INTEGER NOT NULL CHECK (price >= 0),
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  combination TEXT NOT NULL,
  option_value_ids TEXT NOT NULL DEFAULT '[]',
  is_active INTEGER NOT NULL DEFAULT 1,
  position INTEGER NOT NULL DEFAULT 0,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_variants_sku_nocase ON variants(LOWER(sku));
CREATE INDEX IF NOT EXISTS idx_variants_product ON variants(product_id);

-- Reference data for the admin
CREATE TABLE IF NOT EXISTS sizes(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  label TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_sizes_label_nocase ON sizes(LOWER(label));

CREATE TABLE IF NOT EXISTS couriers(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  fee INTEGER NOT NULL DEFAULT 0 CHECK (fee >= 0),
  active INTEGER NOT NULL DEFAULT 1
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_couriers_name_nocase ON couriers(LOWER(name));

-- Home page carousel
CREATE TABLE IF NOT EXISTS banners(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  subtitle TEXT NOT NULL DEFAULT '',
  image_url TEXT NOT NULL,
  link_url TEXT NOT NULL DEFAULT '',
  sort_order INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  starts_at TEXT NOT NULL DEFAULT '',
  ends_at TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_banners_sort ON banners(active, sort_order);

-- Address lookup by ZIP3 prefix
CREATE TABLE IF NOT EXISTS postal_areas(
  prefix TEXT PRIMARY KEY CHECK (length(prefix) = 3),
  city TEXT NOT NULL,
  region TEXT NOT NULL
);

-- Carts
CREATE TABLE IF NOT EXISTS carts(
  id TEXT PRIMARY KEY,
  session_id TEXT UNIQUE NOT NULL,
  user_id TEXT NULL,
  updated_at TEXT
);

CREATE TABLE IF NOT EXISTS cart_items(
  cart_id    TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  variant_id TEXT NOT NULL REFERENCES variants(id) ON DELETE CASCADE,
  qty INTEGER NOT NULL CHECK (qty >= 1),
  price_at_add INTEGER NOT NULL,
  created_at TEXT,
  updated_at TEXT,
  PRIMARY KEY (cart_id, variant_id)
);

-- Orders (line items keep a snapshot; variants may be regenerated later)
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  session_id TEXT,
  postal_code TEXT,
  city TEXT NOT NULL DEFAULT '',
  region TEXT NOT NULL DEFAULT '',
  courier_id INTEGER,
  courier_name TEXT,
  shipping_fee INTEGER NOT NULL DEFAULT 0,
  payment_method TEXT NOT NULL DEFAULT 'card',
  customer_name TEXT,
  customer_email TEXT,
  subtotal INTEGER NOT NULL,
  total INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'PLACED',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

CREATE TABLE IF NOT EXISTS order_items(
  order_id  TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  variant_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  sku TEXT NOT NULL,
  combination TEXT NOT NULL,
  qty INTEGER NOT NULL,
  price INTEGER NOT NULL,
  PRIMARY KEY (order_id, variant_id)
);

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
`
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	// columns added after the first release
	for _, c := range []struct{ table, column, decl string }{
		{"orders", "city", "TEXT NOT NULL DEFAULT ''"},
		{"orders", "region", "TEXT NOT NULL DEFAULT ''"},
	} {
		if err := ensureColumn(db, c.table, c.column, c.decl); err != nil {
			return err
		}
	}
	return nil
}

func ensureColumn(db *sqlx.DB, table, column, decl string) error {
	var cols []string
	if err := db.Select(&cols, `SELECT name FROM pragma_table_info(?)`, table); err != nil {
		return err
	}
	for _, c := range cols {
		if c == column {
			return nil
		}
	}
	_, err := db.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, decl))
	return err
}

type seedProduct struct {
	id, categorySlug, name, slug, description string
	basePrice                                 int64
	options                                   []variants.Option
	stock                                     []int // cycled over the generated rows
}

func seedOption(productID, name string, values ...string) variants.Option {
	o := variants.Option{Name: name}
	for i, v := range values {
		o.Values = append(o.Values, variants.OptionValue{
			ID:    fmt.Sprintf("%s-%s-%d", productID, strings.ToLower(name), i+1),
			Value: v,
		})
	}
	return o
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM categories`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo categories/products/variants")

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	tx.MustExec(`INSERT INTO categories(id,parent_id,slug,name,sort_order) VALUES
	  (1,NULL,'men','Men',1),
	  (2,1,'shirts','Shirts',1),
	  (3,1,'pants','Pants',2),
	  (4,3,'jeans','Jeans',1),
	  (5,NULL,'women','Women',2),
	  (6,5,'dresses','Dresses',1),
	  (7,5,'tops','Tops',2),
	  (8,NULL,'accessories','Accessories',3)`)

	products := []seedProduct{
		{"p-oxford", "shirts", "Oxford Shirt", "oxford-shirt", "Button-down oxford cloth shirt with a relaxed fit.", 4500,
			[]variants.Option{seedOption("p-oxford", "Size", "S", "M", "L"), seedOption("p-oxford", "Color", "White", "Blue")},
			[]int{8, 6, 12, 3, 0, 9}},
		{"p-linen", "shirts", "Linen Shirt", "linen-shirt", "Breathable linen shirt for warm days.", 5200,
			[]variants.Option{seedOption("p-linen", "Size", "S", "M", "L")},
			[]int{5, 2, 7}},
		{"p-chino", "pants", "Slim Chino", "slim-chino", "Stretch cotton chino, slim through the leg.", 5900,
			[]variants.Option{seedOption("p-chino", "Waist", "30", "32", "34"), seedOption("p-chino", "Color", "Khaki", "Navy")},
			[]int{4, 10, 6, 1, 9, 5}},
		{"p-selvedge", "jeans", "Selvedge Jeans", "selvedge-jeans", "Raw selvedge denim, straight cut.", 8900,
			[]variants.Option{seedOption("p-selvedge", "Waist", "30", "32", "34"), seedOption("p-selvedge", "Wash", "Raw", "Rinse")},
			[]int{6, 6, 3, 8, 0, 4}},
		{"p-wrap", "dresses", "Wrap Dress", "wrap-dress", "Midi wrap dress in a soft crepe.", 7500,
			[]variants.Option{seedOption("p-wrap", "Size", "XS", "S", "M"), seedOption("p-wrap", "Color", "Black", "Red")},
			[]int{5, 5, 2, 7, 9, 1}},
		{"p-tee", "tops", "Organic Tee", "organic-tee", "Everyday tee in organic cotton.", 2000,
			[]variants.Option{seedOption("p-tee", "Size", "S", "M", "L", "XL"), seedOption("p-tee", "Color", "White", "Black", "Sage")},
			[]int{12, 9, 6, 3}},
		{"p-scarf", "accessories", "Wool Scarf", "wool-scarf", "Lambswool scarf with fringed ends.", 3500,
			[]variants.Option{seedOption("p-scarf", "Color", "Camel", "Grey", "Navy")},
			[]int{7, 0, 5}},
	}

	for i, p := range products {
		var catID int64
		if err := tx.Get(&catID, `SELECT id FROM categories WHERE slug = ?`, p.categorySlug); err != nil {
			return fmt.Errorf("seed %s: %w", p.slug, err)
		}
		images, _ := json.Marshal([]string{"products/" + p.slug + "/main.jpg"})
		// stagger created_at so "newest first" is deterministic
		tx.MustExec(`INSERT INTO products(id,category_id,name,slug,description,base_price,images_json,active,created_at)
		  VALUES(?,?,?,?,?,?,?,1,datetime('2026-01-01', ?))`,
			p.id, catID, p.name, p.slug, p.description, p.basePrice, string(images), fmt.Sprintf("+%d days", i))

		for oi, o := range p.options {
			optID := fmt.Sprintf("%s-opt-%d", p.id, oi+1)
			tx.MustExec(`INSERT INTO product_options(id,product_id,name,position) VALUES(?,?,?,?)`, optID, p.id, o.Name, oi)
			for vi, v := range o.Values {
				tx.MustExec(`INSERT INTO option_values(id,option_id,value,position) VALUES(?,?,?,?)`, v.ID, optID, v.Value, vi)
			}
		}

		for vi, v := range variants.Generate(p.options, p.slug, p.basePrice) {
			ids, _ := json.Marshal(v.OptionValueIDs)
			stock := p.stock[vi%len(p.stock)]
			tx.MustExec(`INSERT INTO variants(id,product_id,sku,price,stock,combination,option_value_ids,is_active,position)
			  VALUES(?,?,?,?,?,?,?,1,?)`,
				fmt.Sprintf("%s-v%02d", p.id, vi+1), p.id, v.SKU, v.Price, stock, v.Combination, string(ids), vi)
		}
	}

	return tx.Commit()
}

// seedReferenceData ensures default sizes, couriers, banners and postal
// areas exist.
func seedReferenceData(db *sqlx.DB) error {
	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for i, label := range []string{"XS", "S", "M", "L", "XL"} {
		if _, err := tx.Exec(`
			INSERT INTO sizes(label, position)
			SELECT ?, ? WHERE NOT EXISTS (SELECT 1 FROM sizes WHERE LOWER(label) = LOWER(?))
		`, label, i, label); err != nil {
			return err
		}
	}

	couriers := []struct {
		name string
		fee  int64
	}{
		{"Standard Post", 499},
		{"Express Courier", 1299},
		{"Store Pickup", 0},
	}
	for _, c := range couriers {
		if _, err := tx.Exec(`
			INSERT INTO couriers(name, fee, active)
			SELECT ?, ?, 1 WHERE NOT EXISTS (SELECT 1 FROM couriers WHERE LOWER(name) = LOWER(?))
		`, c.name, c.fee, c.name); err != nil {
			return err
		}
	}

	banners := []struct {
		title, subtitle, image, link string
	}{
		{"New season linen", "Light layers for warm days", "/media/banners/linen.jpg", "/category/shirts"},
		{"Denim, made to last", "Raw selvedge and everyday chinos", "/media/banners/denim.jpg", "/category/pants"},
	}
	for i, b := range banners {
		if _, err := tx.Exec(`
			INSERT INTO banners(title, subtitle, image_url, link_url, sort_order, active)
			SELECT ?, ?, ?, ?, ?, 1 WHERE NOT EXISTS (SELECT 1 FROM banners WHERE title = ?)
		`, b.title, b.subtitle, b.image, b.link, i, b.title); err != nil {
			return err
		}
	}

	areas := []domain.PostalArea{
		{Prefix: "100", City: "New York", Region: "NY"},
		{Prefix: "200", City: "Washington", Region: "DC"},
		{Prefix: "207", City: "College Park", Region: "MD"},
		{Prefix: "212", City: "Baltimore", Region: "MD"},
		{Prefix: "303", City: "Atlanta", Region: "GA"},
		{Prefix: "606", City: "Chicago", Region: "IL"},
		{Prefix: "750", City: "Dallas", Region: "TX"},
		{Prefix: "802", City: "Denver", Region: "CO"},
		{Prefix: "941", City: "San Francisco", Region: "CA"},
		{Prefix: "981", City: "Seattle", Region: "WA"},
	}
	for _, a := range areas {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO postal_areas(prefix, city, region) VALUES(?, ?, ?)`,
			a.Prefix, a.City, a.Region); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// seedUsers ensures the demo shoppers and one ADMIN exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Role, Hash string
	}
	mk := func(id, email, name, role, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		return u{ID: id, Email: email, Name: name, Role: role, Hash: string(h)}
	}

	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM users`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	users := []u{
		mk("u-alice", "alice@threadline.test", "Alice", "USER", "Passw0rd!"),
		mk("u-bob", "bob@threadline.test", "Bob", "USER", "Passw0rd!"),
		mk("u-admin", "admin@threadline.test", "Admin", "ADMIN", "Passw0rd!"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role)
			VALUES(?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Role); err != nil {
			return err
		}
	}

	return tx.Commit()
}

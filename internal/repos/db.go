package repos

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	applog "storefront/internal/log"
)

// timeLayout is fixed-width UTC so stored timestamps compare correctly
// both as strings in SQL and after parsing.
const timeLayout = "2006-01-02 15:04:05.000"

func fmtTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func fmtNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer; one connection serializes the
	// check-reserve window of concurrent order creations and avoids
	// SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Products. version advances on every write and backs the optimistic
-- concurrency check on stock adjustments.
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE COLLATE NOCASE,
  price TEXT NOT NULL,
  stock INTEGER NOT NULL CHECK (stock >= 0),
  version INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  updated_at TEXT
);

-- Orders. expires_at is set only while RESERVED.
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  status TEXT NOT NULL CHECK (status IN ('RESERVED','PAID','CANCELED','EXPIRED')),
  created_at TEXT NOT NULL,
  expires_at TEXT,
  paid_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_orders_status_expires ON orders(status, expires_at);

-- product_id carries no foreign key: a product may be deleted once no
-- active order references it, while terminal orders keep their lines
-- for audit.
CREATE TABLE IF NOT EXISTS order_lines(
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  qty INTEGER NOT NULL CHECK (qty >= 1),
  price_snapshot TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_lines_order   ON order_lines(order_id);
CREATE INDEX IF NOT EXISTS idx_order_lines_product ON order_lines(product_id);
`
	_, err := db.Exec(schema)
	return err
}

// seedIfEmpty loads the baseline grocery catalog on first start.
func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM products`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	applog.Info("seed.products", nil)

	type seed struct {
		name  string
		price string
		stock int
	}
	seeds := []seed{
		{"Milk", "2.00", 10},
		{"Bread", "1.50", 25},
		{"Eggs", "3.20", 3},
		{"Apples", "0.90", 100},
		{"Bananas", "0.60", 80},
		{"Butter", "4.10", 15},
		{"Cheese", "6.75", 12},
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	now := fmtTime(time.Now())
	for _, s := range seeds {
		if _, err := tx.Exec(`
			INSERT INTO products(id, name, price, stock, version, created_at)
			VALUES (?, ?, ?, ?, 0, ?)
		`, uuid.NewString(), s.name, s.price, s.stock, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

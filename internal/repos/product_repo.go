package repos

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

// DB exposes the underlying handle so services can open transactions
// spanning several repos.
func (r *ProductRepo) DB() *sqlx.DB { return r.db }

type productRow struct {
	ID        string          `db:"id"`
	Name      string          `db:"name"`
	Price     decimal.Decimal `db:"price"`
	Stock     int             `db:"stock"`
	Version   int64           `db:"version"`
	CreatedAt string          `db:"created_at"`
	UpdatedAt sql.NullString  `db:"updated_at"`
}

func (p productRow) toDomain() domain.Product {
	return domain.Product{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Stock:     p.Stock,
		Version:   p.Version,
		CreatedAt: parseTime(p.CreatedAt),
		UpdatedAt: parseNullTime(p.UpdatedAt),
	}
}

func (r *ProductRepo) Get(id string) (domain.Product, error) {
	var row productRow
	err := r.db.Get(&row, `SELECT * FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Product{}, err
	}
	return row.toDomain(), nil
}

// GetMany fetches products by id on the caller's transaction handle.
// Missing ids are simply absent from the result; the caller decides
// whether that is an error.
func (r *ProductRepo) GetMany(q sqlx.Ext, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM products WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	var rows []productRow
	if err := sqlx.Select(q, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *ProductRepo) List(page, size int, sort string) ([]domain.Product, bool, error) {
	var rows []productRow
	// sort comes from a validated whitelist, never raw user input.
	q := fmt.Sprintf(`SELECT * FROM products ORDER BY %s LIMIT ? OFFSET ?`, sort)
	if err := r.db.Select(&rows, q, size+1, page*size); err != nil {
		return nil, false, err
	}
	return pageOf(rows, size)
}

func (r *ProductRepo) SearchByName(name string, page, size int) ([]domain.Product, bool, error) {
	var rows []productRow
	err := r.db.Select(&rows, `
		SELECT * FROM products
		WHERE name LIKE '%' || ? || '%' COLLATE NOCASE
		ORDER BY name LIMIT ? OFFSET ?
	`, name, size+1, page*size)
	if err != nil {
		return nil, false, err
	}
	return pageOf(rows, size)
}

func (r *ProductRepo) ExistsByName(name string) (bool, error) {
	var n int
	if err := r.db.Get(&n, `SELECT COUNT(*) FROM products WHERE name = ? COLLATE NOCASE`, name); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ProductRepo) Insert(p domain.Product) error {
	_, err := r.db.Exec(`
		INSERT INTO products(id, name, price, stock, version, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`, p.ID, p.Name, p.Price.String(), p.Stock, fmtTime(p.CreatedAt))
	return err
}

// Update writes a catalog edit. The version still advances so in-flight
// stock adjustments against the old state lose their conditional write.
func (r *ProductRepo) Update(p domain.Product, now time.Time) error {
	_, err := r.db.Exec(`
		UPDATE products
		SET name = ?, price = ?, stock = ?, version = version + 1, updated_at = ?
		WHERE id = ?
	`, p.Name, p.Price.String(), p.Stock, fmtTime(now), p.ID)
	return err
}

func (r *ProductRepo) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
	}
	return nil
}

// GetStock loads the display name, current stock and version token for
// one product. The name rides along so shortage reports stay readable
// without a second query.
func (r *ProductRepo) GetStock(q sqlx.Ext, id string) (name string, stock int, version int64, err error) {
	var row struct {
		Name    string `db:"name"`
		Stock   int    `db:"stock"`
		Version int64  `db:"version"`
	}
	err = sqlx.Get(q, &row, `SELECT name, stock, version FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, 0, fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return "", 0, 0, err
	}
	return row.Name, row.Stock, row.Version, nil
}

// SetStockVersioned is the conditional write of the optimistic path: it
// lands only if the stored version still matches the one just read.
func (r *ProductRepo) SetStockVersioned(q sqlx.Ext, id string, stock int, version int64, now time.Time) error {
	res, err := q.Exec(`
		UPDATE products
		SET stock = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`, stock, fmtTime(now), id, version)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: product %s at version %d", domain.ErrVersionConflict, id, version)
	}
	return nil
}

// AddStock increments stock directly. Only the sweeper uses it, inside
// its exclusive-lock window where it is the sole writer to these rows.
func (r *ProductRepo) AddStock(q sqlx.Ext, id string, qty int, now time.Time) error {
	_, err := q.Exec(`
		UPDATE products
		SET stock = stock + ?, version = version + 1, updated_at = ?
		WHERE id = ?
	`, qty, fmtTime(now), id)
	return err
}

func pageOf(rows []productRow, size int) ([]domain.Product, bool, error) {
	last := len(rows) <= size
	if !last {
		rows = rows[:size]
	}
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, last, nil
}

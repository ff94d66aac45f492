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

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

type orderRow struct {
	ID        string         `db:"id"`
	Status    string         `db:"status"`
	CreatedAt string         `db:"created_at"`
	ExpiresAt sql.NullString `db:"expires_at"`
	PaidAt    sql.NullString `db:"paid_at"`
}

type lineRow struct {
	ID            string          `db:"id"`
	OrderID       string          `db:"order_id"`
	ProductID     string          `db:"product_id"`
	ProductName   string          `db:"product_name"`
	UnitPrice     decimal.Decimal `db:"unit_price"`
	Qty           int             `db:"qty"`
	PriceSnapshot decimal.Decimal `db:"price_snapshot"`
}

func (o orderRow) toDomain() domain.Order {
	return domain.Order{
		ID:        o.ID,
		Status:    domain.OrderStatus(o.Status),
		CreatedAt: parseTime(o.CreatedAt),
		ExpiresAt: parseNullTime(o.ExpiresAt),
		PaidAt:    parseNullTime(o.PaidAt),
	}
}

func (l lineRow) toDomain() domain.OrderLine {
	return domain.OrderLine{
		ID:            l.ID,
		OrderID:       l.OrderID,
		ProductID:     l.ProductID,
		ProductName:   l.ProductName,
		UnitPrice:     l.UnitPrice,
		Quantity:      l.Qty,
		PriceSnapshot: l.PriceSnapshot,
	}
}

// Insert persists an order together with its lines on the caller's
// transaction: an order and its lines only ever commit as one unit.
func (r *OrderRepo) Insert(q sqlx.Ext, o domain.Order) error {
	_, err := q.Exec(`
		INSERT INTO orders(id, status, created_at, expires_at, paid_at)
		VALUES (?, ?, ?, ?, ?)
	`, o.ID, string(o.Status), fmtTime(o.CreatedAt), fmtNullTime(o.ExpiresAt), fmtNullTime(o.PaidAt))
	if err != nil {
		return err
	}
	for _, l := range o.Lines {
		if _, err := q.Exec(`
			INSERT INTO order_lines(id, order_id, product_id, qty, price_snapshot)
			VALUES (?, ?, ?, ?, ?)
		`, l.ID, o.ID, l.ProductID, l.Quantity, l.PriceSnapshot.String()); err != nil {
			return err
		}
	}
	return nil
}

func (r *OrderRepo) Get(q sqlx.Ext, id string) (domain.Order, error) {
	var row orderRow
	err := sqlx.Get(q, &row, `SELECT * FROM orders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Order{}, err
	}
	o := row.toDomain()
	lines, err := r.loadLines(q, []string{id})
	if err != nil {
		return domain.Order{}, err
	}
	o.Lines = lines[id]
	return o, nil
}

// UpdateStatus writes one status transition. The caller has already
// re-validated the current status inside the same transaction, so the
// later of two racing transitions fails its precondition instead of
// overwriting the winner.
func (r *OrderRepo) UpdateStatus(q sqlx.Ext, id string, status domain.OrderStatus, expiresAt, paidAt *time.Time) error {
	_, err := q.Exec(`
		UPDATE orders SET status = ?, expires_at = ?, paid_at = ?
		WHERE id = ?
	`, string(status), fmtNullTime(expiresAt), fmtNullTime(paidAt), id)
	return err
}

func (r *OrderRepo) List(page, size int, sort string) ([]domain.Order, bool, error) {
	var rows []orderRow
	// sort comes from a validated whitelist, never raw user input.
	query := fmt.Sprintf(`SELECT * FROM orders ORDER BY %s LIMIT ? OFFSET ?`, sort)
	if err := r.db.Select(&rows, query, size+1, page*size); err != nil {
		return nil, false, err
	}
	return r.attachLines(rows, size)
}

// FindExpiredReservedPage returns one page of RESERVED orders whose
// expiry lies before cutoff, with lines, ordered by id so pages stay
// stable while other writers mutate the set.
func (r *OrderRepo) FindExpiredReservedPage(cutoff time.Time, page, size int) ([]domain.Order, bool, error) {
	var rows []orderRow
	err := r.db.Select(&rows, `
		SELECT * FROM orders
		WHERE status = ? AND expires_at < ?
		ORDER BY id LIMIT ? OFFSET ?
	`, string(domain.StatusReserved), fmtTime(cutoff), size+1, page*size)
	if err != nil {
		return nil, false, err
	}
	return r.attachLines(rows, size)
}

// ExpireOrders flips a batch to EXPIRED and clears their deadlines.
// The status guard makes the write a no-op for any order that left
// RESERVED after the caller selected it, so a payment landing between
// page read and expiry never gets clobbered.
func (r *OrderRepo) ExpireOrders(q sqlx.Ext, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`
		UPDATE orders SET status = ?, expires_at = NULL
		WHERE id IN (?) AND status = ?
	`, string(domain.StatusExpired), ids, string(domain.StatusReserved))
	if err != nil {
		return err
	}
	_, err = q.Exec(query, args...)
	return err
}

// ReservedIDs narrows ids to the orders still in RESERVED, on the
// caller's transaction handle.
func (r *OrderRepo) ReservedIDs(q sqlx.Ext, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT id FROM orders WHERE id IN (?) AND status = ? ORDER BY id
	`, ids, string(domain.StatusReserved))
	if err != nil {
		return nil, err
	}
	var out []string
	if err := sqlx.Select(q, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// ProductInActiveOrders reports whether any RESERVED or PAID order
// still references the product. Deletion is refused while it does.
func (r *OrderRepo) ProductInActiveOrders(productID string) (bool, error) {
	var n int
	err := r.db.Get(&n, `
		SELECT COUNT(*) FROM order_lines l
		JOIN orders o ON o.id = l.order_id
		WHERE l.product_id = ? AND o.status IN (?, ?)
	`, productID, string(domain.StatusReserved), string(domain.StatusPaid))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *OrderRepo) attachLines(rows []orderRow, size int) ([]domain.Order, bool, error) {
	last := len(rows) <= size
	if !last {
		rows = rows[:size]
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	lines, err := r.loadLines(r.db, ids)
	if err != nil {
		return nil, false, err
	}
	out := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		o := row.toDomain()
		o.Lines = lines[o.ID]
		out = append(out, o)
	}
	return out, last, nil
}

// loadLines fetches lines for a set of orders, joined with the product
// catalog for the display name and current unit price. The join is LEFT
// so lines of terminal orders survive a later product deletion.
func (r *OrderRepo) loadLines(q sqlx.Ext, orderIDs []string) (map[string][]domain.OrderLine, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT l.id, l.order_id, l.product_id,
		       COALESCE(p.name, '')  AS product_name,
		       COALESCE(p.price, '0') AS unit_price,
		       l.qty, l.price_snapshot
		FROM order_lines l
		LEFT JOIN products p ON p.id = l.product_id
		WHERE l.order_id IN (?)
		ORDER BY l.id
	`, orderIDs)
	if err != nil {
		return nil, err
	}
	var rows []lineRow
	if err := sqlx.Select(q, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make(map[string][]domain.OrderLine, len(orderIDs))
	for _, row := range rows {
		out[row.OrderID] = append(out[row.OrderID], row.toDomain())
	}
	return out, nil
}

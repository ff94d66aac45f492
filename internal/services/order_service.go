package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/repos"
)

// reservationWindow is how long created orders hold their stock before
// the sweeper may reclaim it.
const reservationWindow = 30 * time.Minute

// OrderService owns the order state machine:
// RESERVED -> PAID | CANCELED | EXPIRED, all terminal.
type OrderService struct {
	DB       *sqlx.DB
	Orders   *repos.OrderRepo
	Products *repos.ProductRepo
	Inv      *InventoryService
	Payments Payer
	Clock    Clock
}

func NewOrderService(db *sqlx.DB, orders *repos.OrderRepo, products *repos.ProductRepo,
	inv *InventoryService, payments Payer, clock Clock) *OrderService {
	return &OrderService{DB: db, Orders: orders, Products: products, Inv: inv, Payments: payments, Clock: clock}
}

// Create reserves stock for every requested product and persists the
// order with its lines in one transaction, so the durable stock
// decrement and the order commit together or not at all.
func (s *OrderService) Create(items map[string]int) (domain.OrderSummary, error) {
	if len(items) == 0 {
		return domain.OrderSummary{}, fmt.Errorf("%w: order must contain at least one item", domain.ErrInvalidRequest)
	}
	for id, qty := range items {
		if qty < 1 {
			return domain.OrderSummary{}, fmt.Errorf("%w: quantity for product %s must be at least 1", domain.ErrInvalidRequest, id)
		}
	}

	tx, err := s.DB.Beginx()
	if err != nil {
		return domain.OrderSummary{}, err
	}
	defer func() { _ = tx.Rollback() }()

	products, err := s.fetchAndValidate(tx, items)
	if err != nil {
		return domain.OrderSummary{}, err
	}

	if err := s.Inv.AdjustStock(tx, items, false); err != nil {
		return domain.OrderSummary{}, err
	}

	order := s.buildOrder(products, items)
	if err := s.Orders.Insert(tx, order); err != nil {
		return domain.OrderSummary{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.OrderSummary{}, err
	}

	applog.Info("order.created", map[string]any{"order_id": order.ID, "lines": len(order.Lines)})
	return order.Summary(), nil
}

// Pay transitions a RESERVED, unexpired order to PAID. Re-validating
// the status inside the transaction means a payment racing the sweeper
// on the same order fails its precondition cleanly instead of
// clobbering the winner.
func (s *OrderService) Pay(orderID string) (domain.OrderSummary, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return domain.OrderSummary{}, err
	}
	defer func() { _ = tx.Rollback() }()

	order, err := s.Orders.Get(tx, orderID)
	if err != nil {
		return domain.OrderSummary{}, err
	}
	if order.Status == domain.StatusPaid {
		return domain.OrderSummary{}, fmt.Errorf("%w: order %s was already paid", domain.ErrInvalidStateTransition, orderID)
	}
	if order.Status != domain.StatusReserved {
		return domain.OrderSummary{}, fmt.Errorf("%w: order %s cannot be paid in state %s", domain.ErrInvalidStateTransition, orderID, order.Status)
	}
	now := s.Clock.Now()
	if order.ExpiresAt != nil && order.ExpiresAt.Before(now) {
		return domain.OrderSummary{}, fmt.Errorf("%w: order %s has expired", domain.ErrInvalidStateTransition, orderID)
	}

	if err := s.Payments.Pay(order.ID); err != nil {
		return domain.OrderSummary{}, err
	}

	order.Status = domain.StatusPaid
	order.ExpiresAt = nil
	order.PaidAt = &now
	if err := s.Orders.UpdateStatus(tx, order.ID, order.Status, nil, order.PaidAt); err != nil {
		return domain.OrderSummary{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.OrderSummary{}, err
	}

	applog.Info("order.paid", map[string]any{"order_id": orderID})
	return order.Summary(), nil
}

// Cancel releases a RESERVED order's stock and retires it. Release and
// status flip share one transaction.
func (s *OrderService) Cancel(orderID string) (domain.OrderSummary, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return domain.OrderSummary{}, err
	}
	defer func() { _ = tx.Rollback() }()

	order, err := s.Orders.Get(tx, orderID)
	if err != nil {
		return domain.OrderSummary{}, err
	}
	if order.Status != domain.StatusReserved {
		return domain.OrderSummary{}, fmt.Errorf("%w: order %s cannot be canceled in state %s", domain.ErrInvalidStateTransition, orderID, order.Status)
	}

	released := make(map[string]int, len(order.Lines))
	for _, l := range order.Lines {
		released[l.ProductID] += l.Quantity
	}
	if err := s.Inv.AdjustStock(tx, released, true); err != nil {
		return domain.OrderSummary{}, err
	}

	order.Status = domain.StatusCanceled
	order.ExpiresAt = nil
	if err := s.Orders.UpdateStatus(tx, order.ID, order.Status, nil, nil); err != nil {
		return domain.OrderSummary{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.OrderSummary{}, err
	}

	applog.Info("order.canceled", map[string]any{"order_id": orderID})
	return order.Summary(), nil
}

func (s *OrderService) GetSummary(orderID string) (domain.OrderSummary, error) {
	order, err := s.Orders.Get(s.DB, orderID)
	if err != nil {
		return domain.OrderSummary{}, err
	}
	return order.Summary(), nil
}

func (s *OrderService) ListAll(page, size int, sortKey string) ([]domain.OrderSummary, bool, error) {
	orders, last, err := s.Orders.List(page, size, sortKey)
	if err != nil {
		return nil, false, err
	}
	out := make([]domain.OrderSummary, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.Summary())
	}
	return out, last, nil
}

// fetchAndValidate loads every referenced product, naming all missing
// ids in one error, then accumulates every shortage rather than failing
// on the first.
func (s *OrderService) fetchAndValidate(tx *sqlx.Tx, items map[string]int) ([]domain.Product, error) {
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	products, err := s.Products.GetMany(tx, ids)
	if err != nil {
		return nil, err
	}

	found := make(map[string]bool, len(products))
	for _, p := range products {
		found[p.ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: products %v", domain.ErrNotFound, missing)
	}

	var shortages []domain.StockShortage
	for _, p := range products {
		if req := items[p.ID]; p.Stock < req {
			shortages = append(shortages, domain.StockShortage{
				ProductName: p.Name, Available: p.Stock, Requested: req,
			})
		}
	}
	if len(shortages) > 0 {
		return nil, &domain.InsufficientStockError{Shortages: shortages}
	}
	return products, nil
}

func (s *OrderService) buildOrder(products []domain.Product, items map[string]int) domain.Order {
	now := s.Clock.Now()
	expires := now.Add(reservationWindow)
	order := domain.Order{
		ID:        uuid.NewString(),
		Status:    domain.StatusReserved,
		CreatedAt: now,
		ExpiresAt: &expires,
	}
	for _, p := range products {
		qty := items[p.ID]
		order.Lines = append(order.Lines, domain.OrderLine{
			ID:            uuid.NewString(),
			OrderID:       order.ID,
			ProductID:     p.ID,
			ProductName:   p.Name,
			UnitPrice:     p.Price,
			Quantity:      qty,
			PriceSnapshot: p.Price.Mul(decimal.NewFromInt(int64(qty))),
		})
	}
	return order
}

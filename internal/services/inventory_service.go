package services

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/repos"
)

// maxAdjustAttempts bounds the optimistic retry loop. Conflicts are
// expected to be rare; hitting the budget signals systemic contention,
// not a business rule violation.
const maxAdjustAttempts = 3

// InventoryService applies signed stock deltas under optimistic
// concurrency. Each product is adjusted independently: load the current
// version, mutate in memory, then commit conditionally on the version
// still matching. Losers of a race reload and retry.
type InventoryService struct {
	Products *repos.ProductRepo
	Clock    Clock
}

func NewInventoryService(products *repos.ProductRepo, clock Clock) *InventoryService {
	return &InventoryService{Products: products, Clock: clock}
}

// AdjustStock applies one quantity delta per product. With release
// false the quantities are reserved (stock decremented); with release
// true they are returned. q is the enclosing operation's transaction
// handle, so the whole batch commits or rolls back with the operation
// that requested it.
func (s *InventoryService) AdjustStock(q sqlx.Ext, changes map[string]int, release bool) error {
	for productID, qty := range changes {
		delta := -qty
		if release {
			delta = qty
		}
		if err := s.adjustOne(q, productID, delta); err != nil {
			return err
		}
	}
	return nil
}

func (s *InventoryService) adjustOne(q sqlx.Ext, productID string, delta int) error {
	return withVersionRetry(maxAdjustAttempts, productID, func() error {
		name, stock, version, err := s.Products.GetStock(q, productID)
		if err != nil {
			return err
		}
		next := stock + delta
		if next < 0 {
			// The service layer checks availability before reserving;
			// reaching this means a concurrent writer already took the
			// stock between check and commit.
			return &domain.InsufficientStockError{Shortages: []domain.StockShortage{
				{ProductName: name, Available: stock, Requested: -delta},
			}}
		}
		return s.Products.SetStockVersioned(q, productID, next, version, s.Clock.Now())
	})
}

// withVersionRetry runs a load-mutate-commit attempt until it lands or
// the budget is spent, retrying only on version conflicts. Reusable for
// any entity carrying a version token.
func withVersionRetry(attempts int, key string, fn func() error) error {
	for i := 1; i <= attempts; i++ {
		err := fn()
		if !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		applog.Warn("inventory.version_conflict", map[string]any{"product_id": key, "attempt": i})
	}
	return fmt.Errorf("%w: could not commit stock change for %s after %d attempts",
		domain.ErrConcurrencyExhausted, key, attempts)
}

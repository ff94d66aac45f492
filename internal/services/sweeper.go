package services

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
	"storefront/internal/locks"
	applog "storefront/internal/log"
	"storefront/internal/repos"
)

const (
	sweepLockKey  = "order-expiration-sweep"
	sweepPageSize = 100
)

// SweepResult reports what one run did, for operational logging.
type SweepResult struct {
	OrdersExpired int
	UnitsReleased int
	Elapsed       time.Duration
}

// Sweeper expires stale RESERVED orders and releases their stock. The
// mutual-exclusion token keeps concurrent runs (possibly on other
// instances) from sweeping the same backlog twice.
type Sweeper struct {
	DB       *sqlx.DB
	Orders   *repos.OrderRepo
	Products *repos.ProductRepo
	Locks    locks.Registry
	Clock    Clock
}

func NewSweeper(db *sqlx.DB, orders *repos.OrderRepo, products *repos.ProductRepo,
	reg locks.Registry, clock Clock) *Sweeper {
	return &Sweeper{DB: db, Orders: orders, Products: products, Locks: reg, Clock: clock}
}

// RunSweepOnce performs one full sweep. If another run holds the token
// the sweep is skipped entirely for this tick. The token is released on
// every exit path.
func (s *Sweeper) RunSweepOnce() (SweepResult, error) {
	if !s.Locks.TryLock(sweepLockKey) {
		applog.Info("sweep.skip", map[string]any{"reason": "another instance is already running this task"})
		return SweepResult{}, nil
	}
	defer s.Locks.Unlock(sweepLockKey)

	start := s.Clock.Now()
	// One cutoff for the whole run, so orders expiring mid-sweep wait
	// for the next tick.
	cutoff := start

	var res SweepResult
	for {
		// Always the first page: each processed batch leaves the
		// RESERVED+expired filter, so the next batch slides into view.
		// Advancing the offset here would skip rows.
		orders, last, err := s.Orders.FindExpiredReservedPage(cutoff, 0, sweepPageSize)
		if err != nil {
			return res, err
		}
		expired, units, err := s.expirePage(orders)
		if err != nil {
			return res, err
		}
		res.OrdersExpired += expired
		res.UnitsReleased += units
		if last {
			break
		}
	}

	res.Elapsed = s.Clock.Now().Sub(start)
	applog.Info("sweep.done", map[string]any{
		"orders_expired": res.OrdersExpired,
		"units_released": res.UnitsReleased,
		"elapsed_ms":     res.Elapsed.Milliseconds(),
	})
	return res, nil
}

// expirePage retires one page of orders in a single bounded
// transaction. Stock is incremented directly, no optimistic retry: the
// sweeper is the sole writer releasing these reservations during its
// locked window, and order creation on the same products stays safe
// through its own conditional-write path.
func (s *Sweeper) expirePage(orders []domain.Order) (int, int, error) {
	if len(orders) == 0 {
		return 0, 0, nil
	}

	tx, err := s.DB.Beginx()
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	// The page was read outside this transaction. An order paid on
	// another instance in between must keep its status and its stock,
	// so only rows still RESERVED here are expired and released.
	stillReserved, err := s.Orders.ReservedIDs(tx, ids)
	if err != nil {
		return 0, 0, err
	}
	if len(stillReserved) == 0 {
		return 0, 0, nil
	}
	reserved := make(map[string]bool, len(stillReserved))
	for _, id := range stillReserved {
		reserved[id] = true
	}

	released := make(map[string]int)
	units := 0
	for _, o := range orders {
		if !reserved[o.ID] {
			continue
		}
		for _, l := range o.Lines {
			released[l.ProductID] += l.Quantity
			units += l.Quantity
		}
	}

	if err := s.Orders.ExpireOrders(tx, stillReserved); err != nil {
		return 0, 0, err
	}
	now := s.Clock.Now()
	for productID, qty := range released {
		if err := s.Products.AddStock(tx, productID, qty, now); err != nil {
			return 0, 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return len(stillReserved), units, nil
}

// SweepScheduler drives the sweeper on a fixed interval until its
// context is canceled. A failed run is logged and never aborts the
// schedule.
type SweepScheduler struct {
	Sweeper  *Sweeper
	Interval time.Duration
}

func (s *SweepScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			applog.Info("sweep.scheduler.stop", nil)
			return
		case <-ticker.C:
			if _, err := s.Sweeper.RunSweepOnce(); err != nil {
				applog.Error("sweep.run", err, nil)
			}
		}
	}
}

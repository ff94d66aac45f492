package services_test

import (
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/locks"
	"storefront/internal/repos"
	"storefront/internal/services"
)

// fakeClock lets tests move time past the reservation window without
// sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	db       *sqlx.DB
	products *repos.ProductRepo
	orders   *repos.OrderRepo
	inv      *services.InventoryService
	orderSvc *services.OrderService
	catalog  *services.ProductService
	sweeper  *services.Sweeper
	registry *locks.Memory
	clock    *fakeClock
}

// newEnv opens an in-memory store with the seeded grocery catalog and
// wires the full service graph around a fake clock.
func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := &fakeClock{now: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)}
	registry := locks.NewMemory()
	productRepo := repos.NewProductRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	inv := services.NewInventoryService(productRepo, clock)

	return &env{
		db:       db,
		products: productRepo,
		orders:   orderRepo,
		inv:      inv,
		orderSvc: services.NewOrderService(db, orderRepo, productRepo, inv, services.NoopPayer{}, clock),
		catalog:  services.NewProductService(productRepo, orderRepo, clock),
		sweeper:  services.NewSweeper(db, orderRepo, productRepo, registry, clock),
		registry: registry,
		clock:    clock,
	}
}

func (e *env) productByName(t *testing.T, name string) domain.Product {
	t.Helper()
	ps, _, err := e.products.SearchByName(name, 0, 2)
	require.NoError(t, err)
	require.Len(t, ps, 1, "expected exactly one product named %s", name)
	return ps[0]
}

func (e *env) stockOf(t *testing.T, id string) int {
	t.Helper()
	p, err := e.products.Get(id)
	require.NoError(t, err)
	return p.Stock
}

package repos_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repos"
)

func reservedOrder(p domain.Product, qty int, createdAt time.Time) domain.Order {
	expires := createdAt.Add(30 * time.Minute)
	id := uuid.NewString()
	return domain.Order{
		ID:        id,
		Status:    domain.StatusReserved,
		CreatedAt: createdAt,
		ExpiresAt: &expires,
		Lines: []domain.OrderLine{{
			ID:            uuid.NewString(),
			OrderID:       id,
			ProductID:     p.ID,
			Quantity:      qty,
			PriceSnapshot: p.Price.Mul(decimal.NewFromInt(int64(qty))),
		}},
	}
}

func TestOrderRepo_InsertAndGetRoundTrip(t *testing.T) {
	db := memdb(t)
	products := repos.NewProductRepo(db)
	orders := repos.NewOrderRepo(db)

	p := insertProduct(t, products, "Tea", "3.40", 20)
	created := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	o := reservedOrder(p, 2, created)
	require.NoError(t, orders.Insert(db, o))

	got, err := orders.Get(db, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReserved, got.Status)
	assert.True(t, got.CreatedAt.Equal(created))
	require.NotNil(t, got.ExpiresAt)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "Tea", got.Lines[0].ProductName)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.Equal(t, "6.8", got.Lines[0].PriceSnapshot.String())
}

func TestOrderRepo_ExpiredReservedPage(t *testing.T) {
	db := memdb(t)
	products := repos.NewProductRepo(db)
	orders := repos.NewOrderRepo(db)
	p := insertProduct(t, products, "Coffee", "7.90", 50)

	base := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	stale := reservedOrder(p, 1, base)
	fresh := reservedOrder(p, 1, base.Add(2*time.Hour))
	require.NoError(t, orders.Insert(db, stale))
	require.NoError(t, orders.Insert(db, fresh))

	cutoff := base.Add(time.Hour)
	page, last, err := orders.FindExpiredReservedPage(cutoff, 0, 100)
	require.NoError(t, err)
	assert.True(t, last)
	require.Len(t, page, 1)
	assert.Equal(t, stale.ID, page[0].ID)
	require.Len(t, page[0].Lines, 1, "page carries lines for stock release")

	// Expired orders leave the filter.
	require.NoError(t, orders.ExpireOrders(db, []string{stale.ID}))
	page, last, err = orders.FindExpiredReservedPage(cutoff, 0, 100)
	require.NoError(t, err)
	assert.True(t, last)
	assert.Empty(t, page)

	got, err := orders.Get(db, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Status)
	assert.Nil(t, got.ExpiresAt)
}

func TestOrderRepo_ExpireOrdersOnlyHitsReserved(t *testing.T) {
	db := memdb(t)
	products := repos.NewProductRepo(db)
	orders := repos.NewOrderRepo(db)
	p := insertProduct(t, products, "Juice", "2.20", 30)

	base := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	stillReserved := reservedOrder(p, 1, base)
	paid := reservedOrder(p, 1, base)
	require.NoError(t, orders.Insert(db, stillReserved))
	require.NoError(t, orders.Insert(db, paid))

	paidAt := base.Add(10 * time.Minute)
	require.NoError(t, orders.UpdateStatus(db, paid.ID, domain.StatusPaid, nil, &paidAt))

	ids := []string{stillReserved.ID, paid.ID}
	got, err := orders.ReservedIDs(db, ids)
	require.NoError(t, err)
	assert.Equal(t, []string{stillReserved.ID}, got)

	// The batch names both; only the RESERVED one may flip.
	require.NoError(t, orders.ExpireOrders(db, ids))

	o, err := orders.Get(db, stillReserved.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, o.Status)

	o, err = orders.Get(db, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, o.Status)
	require.NotNil(t, o.PaidAt)
}

func TestOrderRepo_ProductInActiveOrders(t *testing.T) {
	db := memdb(t)
	products := repos.NewProductRepo(db)
	orders := repos.NewOrderRepo(db)
	p := insertProduct(t, products, "Cocoa", "4.60", 12)

	o := reservedOrder(p, 3, time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC))
	require.NoError(t, orders.Insert(db, o))

	active, err := orders.ProductInActiveOrders(p.ID)
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, orders.UpdateStatus(db, o.ID, domain.StatusCanceled, nil, nil))
	active, err = orders.ProductInActiveOrders(p.ID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestOrderRepo_GetMissing(t *testing.T) {
	db := memdb(t)
	orders := repos.NewOrderRepo(db)
	_, err := orders.Get(db, uuid.NewString())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

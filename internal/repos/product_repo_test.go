package repos_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repos"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func insertProduct(t *testing.T, r *repos.ProductRepo, name, price string, stock int) domain.Product {
	t.Helper()
	p := domain.Product{
		ID:        uuid.NewString(),
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		CreatedAt: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, r.Insert(p))
	return p
}

func TestProductRepo_VersionedWriteConflict(t *testing.T) {
	db := memdb(t)
	r := repos.NewProductRepo(db)
	p := insertProduct(t, r, "Flour", "1.20", 40)
	now := time.Now()

	name, stock, version, err := r.GetStock(db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Flour", name)
	assert.Equal(t, 40, stock)

	// First conditional write on the read version lands.
	require.NoError(t, r.SetStockVersioned(db, p.ID, stock-4, version, now))

	// A second write against the stale version must be rejected.
	err = r.SetStockVersioned(db, p.ID, stock-8, version, now)
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	got, err := r.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 36, got.Stock)
	assert.Equal(t, version+1, got.Version)
}

func TestProductRepo_AddStockAdvancesVersion(t *testing.T) {
	db := memdb(t)
	r := repos.NewProductRepo(db)
	p := insertProduct(t, r, "Sugar", "2.30", 10)

	require.NoError(t, r.AddStock(db, p.ID, 7, time.Now()))

	got, err := r.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 17, got.Stock)
	assert.Equal(t, p.Version+1, got.Version)
}

func TestProductRepo_GetManyIgnoresMissing(t *testing.T) {
	db := memdb(t)
	r := repos.NewProductRepo(db)
	p := insertProduct(t, r, "Salt", "0.80", 30)

	got, err := r.GetMany(db, []string{p.ID, uuid.NewString()})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Salt", got[0].Name)
}

func TestProductRepo_ExistsByNameIsCaseInsensitive(t *testing.T) {
	db := memdb(t)
	r := repos.NewProductRepo(db)
	insertProduct(t, r, "Honey", "5.10", 9)

	ok, err := r.ExistsByName("hOnEy")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.ExistsByName("Vinegar")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProductRepo_ListPaginates(t *testing.T) {
	db := memdb(t)
	r := repos.NewProductRepo(db)

	// 7 seeded products; ask for pages of 5.
	first, last, err := r.List(0, 5, "name")
	require.NoError(t, err)
	assert.Len(t, first, 5)
	assert.False(t, last)

	second, last, err := r.List(1, 5, "name")
	require.NoError(t, err)
	assert.Len(t, second, 2)
	assert.True(t, last)
}

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storefront/internal/validate"
)

func TestProductSort(t *testing.T) {
	assert.Equal(t, "price", validate.ProductSort("price"))
	assert.Equal(t, "created_at", validate.ProductSort(" Created_At "))

	// Keys valid only for the order table must not pass through.
	assert.Equal(t, "name", validate.ProductSort("status"))
	assert.Equal(t, "name", validate.ProductSort("drop table"))
	assert.Equal(t, "name", validate.ProductSort(""))
}

func TestOrderSort(t *testing.T) {
	assert.Equal(t, "status", validate.OrderSort("status"))
	assert.Equal(t, "created_at", validate.OrderSort("created_at"))

	// Keys valid only for the product table must not pass through.
	assert.Equal(t, "id", validate.OrderSort("price"))
	assert.Equal(t, "id", validate.OrderSort("name"))
	assert.Equal(t, "id", validate.OrderSort(""))
}

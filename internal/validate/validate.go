package validate

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var productSortKeys = map[string]bool{
	"id":         true,
	"name":       true,
	"price":      true,
	"created_at": true,
}

var orderSortKeys = map[string]bool{
	"id":         true,
	"status":     true,
	"created_at": true,
}

// Name validates a displayable product name with a reasonable max length.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 100 {
		return "", false
	}
	return s, true
}

// ID checks that s parses as a UUID and returns its canonical form.
func ID(s string) (string, bool) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// Qty validates an order line quantity.
func Qty(n int) bool { return n >= 1 }

// Page parses a zero-based page number, defaulting to 0.
func Page(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Size parses a page size, clamped to avoid abuse.
func Size(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 8
	}
	if n > 100 {
		return 100
	}
	return n
}

// ProductSort whitelists a product sort key; anything unknown falls
// back to name so user input never reaches the ORDER BY clause
// verbatim. The whitelists are per table: a key valid for one table
// must not leak into a query against the other.
func ProductSort(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if productSortKeys[s] {
		return s
	}
	return "name"
}

// OrderSort is the order-table counterpart of ProductSort, falling
// back to id.
func OrderSort(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if orderSortKeys[s] {
		return s
	}
	return "id"
}

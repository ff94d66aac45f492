package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Expected business outcomes. Callers match with errors.Is and act on
// them; none of these ever triggers a retry.
var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidRequest         = errors.New("invalid request")
	ErrInvalidStateTransition = errors.New("invalid state transition")
)

// ErrVersionConflict signals that a conditional product write lost to a
// concurrent writer. The inventory adjuster retries on it; anything
// else treats it as internal.
var ErrVersionConflict = errors.New("version conflict")

// ErrConcurrencyExhausted means a stock adjustment could not be
// committed within the retry budget. It aborts the whole enclosing
// operation: stock state could not be safely changed.
var ErrConcurrencyExhausted = errors.New("concurrency retries exhausted")

// StockShortage records one product that cannot satisfy a requested
// quantity.
type StockShortage struct {
	ProductName string `json:"productName"`
	Available   int    `json:"available"`
	Requested   int    `json:"requested"`
}

// InsufficientStockError carries every shortage found while checking an
// order, not just the first.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s (available %d, requested %d)", s.ProductName, s.Available, s.Requested))
	}
	return "insufficient stock for: " + strings.Join(parts, ", ")
}

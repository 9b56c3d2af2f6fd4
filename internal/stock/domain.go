// Package stock guards inventory levels. Deductions are all-or-nothing per
// cart and can never drive a level below zero.
package stock

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Level is the current on-hand quantity for a product at one branch.
// AvgCost is the moving-average unit cost snapshotted onto movements.
type Level struct {
	ProductID int64
	Qty       int64
	AvgCost   decimal.Decimal
	UpdatedAt time.Time
}

// Movement is one immutable inventory change tied to a sale line. Created
// exactly once per committed sale line; a return posts a compensating
// movement instead of editing this one.
type Movement struct {
	ID        int64           `json:"id"`
	SaleID    uuid.UUID       `json:"sale_id"`
	ProductID int64           `json:"product_id"`
	QtyDelta  int64           `json:"qty_delta"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	PostedAt  time.Time       `json:"posted_at"`
}

// DeductLine is one requested deduction.
type DeductLine struct {
	ProductID int64
	Qty       int64
}

// InsufficientStockError reports a business fact: the requested quantity is
// not available. It is never retried automatically.
type InsufficientStockError struct {
	ProductID int64
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock: insufficient stock for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// Is lets callers match the sentinel without unpacking the detail.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

var (
	// ErrInsufficientStock is the sentinel for InsufficientStockError.
	ErrInsufficientStock = errors.New("stock: insufficient stock")
	// ErrLockTimeout indicates the row lock wait exceeded its bound. Safe
	// to retry once, unlike ErrInsufficientStock.
	ErrLockTimeout = errors.New("stock: lock wait timed out")
	// ErrInvalidQuantity indicates a non-positive requested quantity.
	ErrInvalidQuantity = errors.New("stock: quantity must be >= 1")
)

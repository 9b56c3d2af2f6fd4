package stock

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// TxStore exposes the level and movement operations available inside a sale
// transaction. GetLevelForUpdate holds an exclusive row lock until the
// transaction ends; the lock wait is bounded and reported as ErrLockTimeout.
type TxStore interface {
	GetLevelForUpdate(ctx context.Context, productID int64) (Level, error)
	SetLevelQty(ctx context.Context, productID int64, qty int64) error
	InsertMovement(ctx context.Context, m Movement) (int64, error)
}

// Ledger performs check-and-decrement deductions.
type Ledger struct {
	now func() time.Time
}

// NewLedger constructs the stock ledger.
func NewLedger() *Ledger {
	return &Ledger{now: time.Now}
}

// WithNow overrides the clock for testing.
func (l *Ledger) WithNow(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}

// ReserveAndDeduct checks and decrements every line or none. Rows are
// locked in product-id order so concurrent sales over overlapping carts
// cannot deadlock. Any error aborts the caller's transaction, which undoes
// the decrements already applied.
func (l *Ledger) ReserveAndDeduct(ctx context.Context, tx TxStore, saleID uuid.UUID, lines []DeductLine) ([]Movement, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("stock: no lines to deduct")
	}

	merged := make(map[int64]int64, len(lines))
	for _, line := range lines {
		if line.Qty < 1 {
			return nil, ErrInvalidQuantity
		}
		merged[line.ProductID] += line.Qty
	}
	productIDs := make([]int64, 0, len(merged))
	for id := range merged {
		productIDs = append(productIDs, id)
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	postedAt := l.now().UTC()
	movements := make([]Movement, 0, len(productIDs))
	for _, productID := range productIDs {
		requested := merged[productID]
		level, err := tx.GetLevelForUpdate(ctx, productID)
		if err != nil {
			return nil, err
		}
		if level.Qty < requested {
			return nil, &InsufficientStockError{ProductID: productID, Requested: requested, Available: level.Qty}
		}
		if err := tx.SetLevelQty(ctx, productID, level.Qty-requested); err != nil {
			return nil, err
		}
		m := Movement{
			SaleID:    saleID,
			ProductID: productID,
			QtyDelta:  -requested,
			UnitCost:  level.AvgCost,
			PostedAt:  postedAt,
		}
		id, err := tx.InsertMovement(ctx, m)
		if err != nil {
			return nil, err
		}
		m.ID = id
		movements = append(movements, m)
	}
	return movements, nil
}

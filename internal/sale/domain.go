// Package sale owns the checkout transaction: pricing, stock deduction,
// payment reconciliation, ledger posting, and the persisted sale record all
// commit or roll back as one unit.
package sale

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-pos/meridian-pos/internal/customer"
	"github.com/meridian-pos/meridian-pos/internal/payment"
	"github.com/meridian-pos/meridian-pos/internal/pricing"
	"github.com/meridian-pos/meridian-pos/internal/stock"
)

// Status is the persisted sale state. Only committed sales are ever
// visible; a rolled-back attempt leaves no record.
type Status string

// StatusCommitted marks a fully committed sale.
const StatusCommitted Status = "COMMITTED"

// Line is one cart line bound to the sale. Immutable once priced.
type Line struct {
	ProductID int64           `json:"product_id"`
	VariantID *int64          `json:"variant_id,omitempty"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Sale is the aggregate root binding the priced order, payment outcome,
// stock movements, and ledger posting. Created only via Service.Checkout.
type Sale struct {
	ID             uuid.UUID
	TenantID       int64
	BranchID       int64
	CustomerID     *int64
	Status         Status
	Order          pricing.PricedOrder
	TenderedAmount decimal.Decimal
	Outcome        payment.Outcome
	Resolution     payment.Resolution
	PostingID      int64
	Lines          []Line
	Movements      []stock.Movement
	CreatedBy      int64
	CreatedAt      time.Time
}

// CheckoutInput is the engine's request contract.
type CheckoutInput struct {
	Lines           []Line
	Discount        pricing.Discount
	TaxRate         decimal.Decimal
	DeliveryCost    decimal.Decimal
	TenderedAmount  decimal.Decimal
	Resolution      payment.Resolution
	CustomerID      *int64
	Currency        string
	ClientRequestID string
	ActorID         int64
}

// Result is returned for a committed sale.
type Result struct {
	SaleID           uuid.UUID           `json:"sale_id"`
	Order            pricing.PricedOrder `json:"priced_order"`
	Outcome          payment.Outcome     `json:"payment_outcome"`
	Resolution       payment.Resolution  `json:"payment_resolution"`
	Movements        []stock.Movement    `json:"stock_movements"`
	PostingID        int64               `json:"ledger_posting_id"`
	CustomerBalances *customer.Balances  `json:"customer_balances,omitempty"`
}

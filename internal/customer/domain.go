package customer

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Account is the per-customer running balance row. DebtBalance is what the
// customer owes the store; WalletBalance is store credit held for the
// customer. Both are non-negative at all times.
type Account struct {
	ID            int64
	TenantID      int64
	Name          string
	Phone         *string
	DebtBalance   decimal.Decimal
	WalletBalance decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Balances is the post-update snapshot returned to the sale result.
type Balances struct {
	CustomerID    int64           `json:"customer_id"`
	DebtBalance   decimal.Decimal `json:"debt_balance"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
}

var (
	// ErrAccountNotFound indicates an unknown customer reference.
	ErrAccountNotFound = errors.New("customer: account not found")
	// ErrNegativeDelta indicates an attempt to decrease a balance through
	// the sale path. Balances only decrease via explicit reconciling
	// events (payments, wallet redemptions) outside this engine.
	ErrNegativeDelta = errors.New("customer: balance delta must be >= 0")
)

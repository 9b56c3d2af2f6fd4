// Package ledger posts balanced double-entry journal entries for sales.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountMapping links an integration key to a ledger account.
type AccountMapping struct {
	Module    string
	Key       string
	AccountID int64
}

// Sale posting mapping keys, resolved per tenant through account_mappings.
const (
	MappingModuleSale = "SALE"

	KeyCashInTransit   = "sale.cash_in_transit"
	KeyReceivable      = "sale.accounts_receivable"
	KeyRevenue         = "sale.revenue"
	KeyTaxPayable      = "sale.tax_payable"
	KeyDiscountsGiven  = "sale.discounts_given"
	KeyDeliveryIncome  = "sale.delivery_income"
	KeyWalletLiability = "sale.wallet_liability"
	KeyCOGS            = "sale.cogs"
	KeyInventoryAsset  = "sale.inventory_asset"
)

// PostingLineInput describes one journal line for a posting request.
type PostingLineInput struct {
	AccountID int64           `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// PostingInput groups the fields required to create a posting. Immutable
// once committed; corrections are posted as reversals, never edits.
type PostingInput struct {
	SourceModule string
	SourceID     uuid.UUID
	Memo         string
	PostedAt     time.Time
	Lines        []PostingLineInput
}

// Posting is a committed journal entry.
type Posting struct {
	ID           int64
	SourceModule string
	SourceID     uuid.UUID
	Memo         string
	PostedAt     time.Time
	Lines        []PostingLineInput
}

var (
	// ErrImbalance indicates sum(debits) != sum(credits). This is a
	// programming defect, never corrected silently.
	ErrImbalance = errors.New("ledger: posting lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: posting requires at least two lines")
	// ErrSourceAlreadyLinked indicates a posting already exists for the source.
	ErrSourceAlreadyLinked = errors.New("ledger: source already linked")
	// ErrMappingNotFound indicates a missing account mapping.
	ErrMappingNotFound = errors.New("ledger: account mapping not found")
)

// Validate asserts the double-entry invariant before anything is persisted.
func (in PostingInput) Validate() error {
	if in.SourceModule == "" {
		return errors.New("ledger: source module required")
	}
	if in.SourceID == uuid.Nil {
		return errors.New("ledger: source id required")
	}
	if len(in.Lines) < 2 {
		return ErrTooFewLines
	}
	debit := decimal.Zero
	credit := decimal.Zero
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("ledger: line %d missing account", idx)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("ledger: line %d negative amount", idx)
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return fmt.Errorf("ledger: line %d cannot be both debit and credit", idx)
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !debit.Equal(credit) {
		return fmt.Errorf("%w: debit %s, credit %s", ErrImbalance, debit, credit)
	}
	return nil
}

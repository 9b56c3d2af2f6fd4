// Package payment classifies a tendered amount against the grand total and
// settles non-exact outcomes against the customer account.
package payment

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// OutcomeKind enumerates how the tendered amount compares to the total.
type OutcomeKind string

const (
	// OutcomeExact means tendered == grand total.
	OutcomeExact OutcomeKind = "EXACT"
	// OutcomeUnderpaid means tendered < grand total; Balance holds the gap.
	OutcomeUnderpaid OutcomeKind = "UNDERPAID"
	// OutcomeOverpaid means tendered > grand total; Excess holds the gap.
	OutcomeOverpaid OutcomeKind = "OVERPAID"
)

// Outcome is the classification of a payment. Balance is set only for
// UNDERPAID, Excess only for OVERPAID; both are zero otherwise.
type Outcome struct {
	Kind    OutcomeKind     `json:"kind"`
	Balance decimal.Decimal `json:"balance"`
	Excess  decimal.Decimal `json:"excess"`
}

// Resolution is the business policy chosen by the caller to settle a
// non-exact outcome. It is supplied, never inferred.
type Resolution string

const (
	// ResolutionNone is valid only for exact payments.
	ResolutionNone Resolution = "NONE"
	// ResolutionAllowDebt books the underpaid balance as customer debt.
	ResolutionAllowDebt Resolution = "ALLOW_DEBT"
	// ResolutionReturnChange hands the excess back as physical change.
	ResolutionReturnChange Resolution = "RETURN_CHANGE"
	// ResolutionCreditWallet books the excess as customer wallet credit.
	ResolutionCreditWallet Resolution = "CREDIT_WALLET"
)

var (
	// ErrInvalidTender indicates a negative tendered amount.
	ErrInvalidTender = errors.New("payment: tendered amount must be >= 0")
	// ErrResolutionRequired indicates a non-exact outcome without a policy.
	ErrResolutionRequired = errors.New("payment: resolution required for non-exact payment")
	// ErrResolutionNotAllowed indicates a policy that does not match the outcome.
	ErrResolutionNotAllowed = errors.New("payment: resolution not allowed for outcome")
	// ErrDebtRequiresCustomer rejects granting debt to a walk-in buyer.
	ErrDebtRequiresCustomer = errors.New("payment: debt requires identified customer")
	// ErrWalletRequiresCustomer rejects wallet credit for a walk-in buyer.
	ErrWalletRequiresCustomer = errors.New("payment: wallet credit requires identified customer")
)

// Classify compares tendered against the grand total. Pure and deterministic.
func Classify(grandTotal, tendered decimal.Decimal) Outcome {
	switch tendered.Cmp(grandTotal) {
	case 0:
		return Outcome{Kind: OutcomeExact}
	case -1:
		return Outcome{Kind: OutcomeUnderpaid, Balance: grandTotal.Sub(tendered)}
	default:
		return Outcome{Kind: OutcomeOverpaid, Excess: tendered.Sub(grandTotal)}
	}
}

// Intent pairs an outcome with the caller-supplied resolution and customer.
type Intent struct {
	Outcome    Outcome
	Resolution Resolution
	CustomerID *int64
}

// Validate checks the resolution against the outcome before any resource is
// touched. The rules form a closed set; there is no default branch that
// accepts an unknown resolution.
func (in Intent) Validate() error {
	switch in.Outcome.Kind {
	case OutcomeExact:
		if in.Resolution != ResolutionNone && in.Resolution != "" {
			return fmt.Errorf("%w: exact payment needs no resolution", ErrResolutionNotAllowed)
		}
		return nil
	case OutcomeUnderpaid:
		switch in.Resolution {
		case ResolutionNone, "":
			return ErrResolutionRequired
		case ResolutionAllowDebt:
			if in.CustomerID == nil {
				return ErrDebtRequiresCustomer
			}
			return nil
		default:
			return fmt.Errorf("%w: underpaid sale only settles as debt", ErrResolutionNotAllowed)
		}
	case OutcomeOverpaid:
		switch in.Resolution {
		case ResolutionNone, "":
			return ErrResolutionRequired
		case ResolutionReturnChange:
			return nil
		case ResolutionCreditWallet:
			if in.CustomerID == nil {
				return ErrWalletRequiresCustomer
			}
			return nil
		default:
			return fmt.Errorf("%w: overpaid sale settles as change or wallet credit", ErrResolutionNotAllowed)
		}
	default:
		return fmt.Errorf("payment: unknown outcome kind %q", in.Outcome.Kind)
	}
}

package sale

import (
	"errors"

	"github.com/meridian-pos/meridian-pos/internal/customer"
	"github.com/meridian-pos/meridian-pos/internal/ledger"
	"github.com/meridian-pos/meridian-pos/internal/payment"
	"github.com/meridian-pos/meridian-pos/internal/pricing"
	"github.com/meridian-pos/meridian-pos/internal/shared"
	"github.com/meridian-pos/meridian-pos/internal/stock"
)

// Stable failure codes consumed by POS clients. The code alone tells the UI
// whether to fix the input, change the request, retry, or page an operator.
const (
	CodeMissingScope           = "MissingScope"
	CodeInvalidPricingInput    = "InvalidPricingInput"
	CodeInvalidResolution      = "InvalidPaymentResolution"
	CodeInsufficientStock      = "InsufficientStock"
	CodeStockLockTimeout       = "StockLockTimeout"
	CodeDebtRequiresCustomer   = "DebtRequiresIdentifiedCustomer"
	CodeWalletRequiresCustomer = "WalletRequiresIdentifiedCustomer"
	CodeCustomerNotFound       = "CustomerNotFound"
	CodeLedgerImbalance        = "LedgerImbalance"
	CodeDuplicateRequest       = "DuplicateRequest"
	CodeInternal               = "Internal"
)

// FailureCode maps a checkout error to its stable code.
func FailureCode(err error) string {
	switch {
	case errors.Is(err, shared.ErrScopeMissing):
		return CodeMissingScope
	case errors.Is(err, pricing.ErrInvalidInput), errors.Is(err, payment.ErrInvalidTender):
		return CodeInvalidPricingInput
	case errors.Is(err, payment.ErrResolutionRequired), errors.Is(err, payment.ErrResolutionNotAllowed):
		return CodeInvalidResolution
	case errors.Is(err, payment.ErrDebtRequiresCustomer):
		return CodeDebtRequiresCustomer
	case errors.Is(err, payment.ErrWalletRequiresCustomer):
		return CodeWalletRequiresCustomer
	case errors.Is(err, customer.ErrAccountNotFound):
		return CodeCustomerNotFound
	case errors.Is(err, stock.ErrInsufficientStock):
		return CodeInsufficientStock
	case errors.Is(err, stock.ErrLockTimeout):
		return CodeStockLockTimeout
	case errors.Is(err, ledger.ErrImbalance):
		return CodeLedgerImbalance
	case errors.Is(err, shared.ErrIdempotencyConflict):
		return CodeDuplicateRequest
	default:
		return CodeInternal
	}
}

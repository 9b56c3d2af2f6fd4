package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/meridian-pos/meridian-pos/internal/customer"
)

// Settlement records what the reconciliation did. A sale increases debt or
// wallet, never both; at most one delta is non-zero.
type Settlement struct {
	Outcome     Outcome            `json:"outcome"`
	Resolution  Resolution         `json:"resolution"`
	CashApplied decimal.Decimal    `json:"cash_applied"`
	DebtDelta   decimal.Decimal    `json:"debt_delta"`
	WalletDelta decimal.Decimal    `json:"wallet_delta"`
	Balances    *customer.Balances `json:"balances,omitempty"`
}

// Reconcile validates the intent and applies the balance side effect inside
// the caller's transaction. accounts may be nil only when the intent needs
// no customer account.
func Reconcile(ctx context.Context, accounts customer.TxStore, grandTotal decimal.Decimal, in Intent) (Settlement, error) {
	if err := in.Validate(); err != nil {
		return Settlement{}, err
	}

	st := Settlement{
		Outcome:     in.Outcome,
		Resolution:  in.Resolution,
		CashApplied: grandTotal,
		DebtDelta:   decimal.Zero,
		WalletDelta: decimal.Zero,
	}
	if in.Resolution == "" {
		st.Resolution = ResolutionNone
	}

	switch in.Outcome.Kind {
	case OutcomeExact:
		return st, nil
	case OutcomeUnderpaid:
		// Cash covers only the tendered portion; the rest becomes debt.
		st.CashApplied = grandTotal.Sub(in.Outcome.Balance)
		st.DebtDelta = in.Outcome.Balance
	case OutcomeOverpaid:
		if in.Resolution == ResolutionReturnChange {
			// Cashier returns physical change; no balance change.
			return st, nil
		}
		st.WalletDelta = in.Outcome.Excess
	}

	if accounts == nil {
		return Settlement{}, fmt.Errorf("payment: account store required for %s", st.Resolution)
	}
	if _, err := accounts.GetForUpdate(ctx, *in.CustomerID); err != nil {
		return Settlement{}, err
	}
	balances, err := accounts.ApplyDelta(ctx, *in.CustomerID, st.DebtDelta, st.WalletDelta)
	if err != nil {
		return Settlement{}, err
	}
	st.Balances = &balances
	return st, nil
}

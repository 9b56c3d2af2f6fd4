package payment

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/customer"
)

type memoryAccounts struct {
	accounts map[int64]*customer.Account
}

func newMemoryAccounts(ids ...int64) *memoryAccounts {
	m := &memoryAccounts{accounts: make(map[int64]*customer.Account)}
	for _, id := range ids {
		m.accounts[id] = &customer.Account{ID: id, DebtBalance: decimal.Zero, WalletBalance: decimal.Zero}
	}
	return m
}

func (m *memoryAccounts) GetForUpdate(ctx context.Context, customerID int64) (customer.Account, error) {
	acc, ok := m.accounts[customerID]
	if !ok {
		return customer.Account{}, customer.ErrAccountNotFound
	}
	return *acc, nil
}

func (m *memoryAccounts) ApplyDelta(ctx context.Context, customerID int64, debtDelta, walletDelta decimal.Decimal) (customer.Balances, error) {
	if debtDelta.IsNegative() || walletDelta.IsNegative() {
		return customer.Balances{}, customer.ErrNegativeDelta
	}
	acc, ok := m.accounts[customerID]
	if !ok {
		return customer.Balances{}, customer.ErrAccountNotFound
	}
	acc.DebtBalance = acc.DebtBalance.Add(debtDelta)
	acc.WalletBalance = acc.WalletBalance.Add(walletDelta)
	return customer.Balances{CustomerID: customerID, DebtBalance: acc.DebtBalance, WalletBalance: acc.WalletBalance}, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestClassify(t *testing.T) {
	out := Classify(dec("1044"), dec("1044"))
	require.Equal(t, OutcomeExact, out.Kind)

	out = Classify(dec("1044"), dec("1000"))
	require.Equal(t, OutcomeUnderpaid, out.Kind)
	require.True(t, out.Balance.Equal(dec("44")))

	out = Classify(dec("1044"), dec("1100"))
	require.Equal(t, OutcomeOverpaid, out.Kind)
	require.True(t, out.Excess.Equal(dec("56")))
}

func TestReconcileExact(t *testing.T) {
	st, err := Reconcile(context.Background(), nil, dec("1044"), Intent{
		Outcome:    Classify(dec("1044"), dec("1044")),
		Resolution: ResolutionNone,
	})
	require.NoError(t, err)
	require.True(t, st.CashApplied.Equal(dec("1044")))
	require.True(t, st.DebtDelta.IsZero())
	require.True(t, st.WalletDelta.IsZero())
	require.Nil(t, st.Balances)
}

func TestReconcileDebt(t *testing.T) {
	accounts := newMemoryAccounts(7)
	id := int64(7)
	st, err := Reconcile(context.Background(), accounts, dec("1044"), Intent{
		Outcome:    Classify(dec("1044"), dec("1000")),
		Resolution: ResolutionAllowDebt,
		CustomerID: &id,
	})
	require.NoError(t, err)
	require.True(t, st.CashApplied.Equal(dec("1000")))
	require.True(t, st.DebtDelta.Equal(dec("44")))
	require.True(t, st.WalletDelta.IsZero())
	require.NotNil(t, st.Balances)
	require.True(t, st.Balances.DebtBalance.Equal(dec("44")))
}

func TestReconcileWalletCredit(t *testing.T) {
	accounts := newMemoryAccounts(7)
	id := int64(7)
	st, err := Reconcile(context.Background(), accounts, dec("1044"), Intent{
		Outcome:    Classify(dec("1044"), dec("1100")),
		Resolution: ResolutionCreditWallet,
		CustomerID: &id,
	})
	require.NoError(t, err)
	require.True(t, st.CashApplied.Equal(dec("1044")))
	require.True(t, st.WalletDelta.Equal(dec("56")))
	require.True(t, st.DebtDelta.IsZero())
	require.True(t, st.Balances.WalletBalance.Equal(dec("56")))
}

func TestReconcileReturnChange(t *testing.T) {
	st, err := Reconcile(context.Background(), nil, dec("1044"), Intent{
		Outcome:    Classify(dec("1044"), dec("1100")),
		Resolution: ResolutionReturnChange,
	})
	require.NoError(t, err)
	require.True(t, st.CashApplied.Equal(dec("1044")))
	require.True(t, st.WalletDelta.IsZero())
	require.Nil(t, st.Balances)
}

func TestValidateRejections(t *testing.T) {
	id := int64(7)
	under := Classify(dec("1044"), dec("1000"))
	over := Classify(dec("1044"), dec("1100"))
	exact := Classify(dec("1044"), dec("1044"))

	require.ErrorIs(t, Intent{Outcome: under}.Validate(), ErrResolutionRequired)
	require.ErrorIs(t, Intent{Outcome: under, Resolution: ResolutionAllowDebt}.Validate(), ErrDebtRequiresCustomer)
	require.ErrorIs(t, Intent{Outcome: under, Resolution: ResolutionReturnChange, CustomerID: &id}.Validate(), ErrResolutionNotAllowed)
	require.ErrorIs(t, Intent{Outcome: over}.Validate(), ErrResolutionRequired)
	require.ErrorIs(t, Intent{Outcome: over, Resolution: ResolutionCreditWallet}.Validate(), ErrWalletRequiresCustomer)
	require.ErrorIs(t, Intent{Outcome: over, Resolution: ResolutionAllowDebt, CustomerID: &id}.Validate(), ErrResolutionNotAllowed)
	require.ErrorIs(t, Intent{Outcome: exact, Resolution: ResolutionAllowDebt, CustomerID: &id}.Validate(), ErrResolutionNotAllowed)
	require.NoError(t, Intent{Outcome: over, Resolution: ResolutionReturnChange}.Validate())
}

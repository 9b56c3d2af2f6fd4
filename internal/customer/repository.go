package customer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// TxStore exposes the balance mutations available inside a sale transaction.
type TxStore interface {
	GetForUpdate(ctx context.Context, customerID int64) (Account, error)
	ApplyDelta(ctx context.Context, customerID int64, debtDelta, walletDelta decimal.Decimal) (Balances, error)
}

// NewTxStore wraps a pgx transaction for customer balance updates.
func NewTxStore(tx pgx.Tx, scope shared.Scope) TxStore {
	return &txStore{tx: tx, scope: scope}
}

type txStore struct {
	tx    pgx.Tx
	scope shared.Scope
}

// GetForUpdate locks the account row for the duration of the transaction.
func (s *txStore) GetForUpdate(ctx context.Context, customerID int64) (Account, error) {
	const q = `SELECT id, tenant_id, name, phone, debt_balance, wallet_balance, created_at, updated_at
		FROM customer_accounts WHERE id = $1 AND tenant_id = $2 FOR UPDATE`
	var acc Account
	err := s.tx.QueryRow(ctx, q, customerID, s.scope.TenantID).Scan(
		&acc.ID, &acc.TenantID, &acc.Name, &acc.Phone,
		&acc.DebtBalance, &acc.WalletBalance, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("customer: get for update: %w", err)
	}
	return acc, nil
}

// ApplyDelta increments the balances and returns the updated snapshot. The
// caller must hold the row lock via GetForUpdate.
func (s *txStore) ApplyDelta(ctx context.Context, customerID int64, debtDelta, walletDelta decimal.Decimal) (Balances, error) {
	if debtDelta.IsNegative() || walletDelta.IsNegative() {
		return Balances{}, ErrNegativeDelta
	}
	const q = `UPDATE customer_accounts
		SET debt_balance = debt_balance + $3,
		    wallet_balance = wallet_balance + $4,
		    updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
		RETURNING id, debt_balance, wallet_balance`
	var out Balances
	err := s.tx.QueryRow(ctx, q, customerID, s.scope.TenantID, debtDelta, walletDelta).Scan(
		&out.CustomerID, &out.DebtBalance, &out.WalletBalance,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balances{}, ErrAccountNotFound
		}
		return Balances{}, fmt.Errorf("customer: apply delta: %w", err)
	}
	return out, nil
}

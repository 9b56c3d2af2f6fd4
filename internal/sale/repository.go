package sale

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/customer"
	"github.com/meridian-pos/meridian-pos/internal/ledger"
	"github.com/meridian-pos/meridian-pos/internal/platform/db"
	"github.com/meridian-pos/meridian-pos/internal/shared"
	"github.com/meridian-pos/meridian-pos/internal/stock"
)

// Repository is the pgx-backed persistence layer and transaction runner for
// sales.
type Repository struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewRepository wires the repository to the pool. lockTimeout bounds row lock
// waits on stock levels inside checkout transactions.
func NewRepository(pool *pgxpool.Pool, lockTimeout time.Duration) *Repository {
	return &Repository{pool: pool, lockTimeout: lockTimeout}
}

type txBundle struct {
	stock     stock.TxStore
	customers customer.TxStore
	ledger    ledger.TxStore
	sales     TxStore
}

func (b txBundle) Stock() stock.TxStore        { return b.stock }
func (b txBundle) Customers() customer.TxStore { return b.customers }
func (b txBundle) Ledger() ledger.TxStore      { return b.ledger }
func (b txBundle) Sales() TxStore              { return b.sales }

// WithTx opens one transaction and hands the callback stores bound to it.
func (r *Repository) WithTx(ctx context.Context, scope shared.Scope, fn func(context.Context, TxBundle) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		bundle := txBundle{
			stock:     stock.NewTxStore(tx, scope, r.lockTimeout),
			customers: customer.NewTxStore(tx, scope),
			ledger:    ledger.NewTxStore(tx, scope),
			sales:     &txStore{tx: tx, scope: scope},
		}
		return fn(ctx, bundle)
	})
}

type txStore struct {
	tx    pgx.Tx
	scope shared.Scope
}

func (s *txStore) InsertSale(ctx context.Context, sale Sale) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO sales (
			id, tenant_id, branch_id, customer_id, status, currency,
			subtotal, discount_total, tax_total, delivery_cost, grand_total,
			tendered_amount, payment_outcome, payment_resolution,
			ledger_posting_id, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		sale.ID, s.scope.TenantID, s.scope.BranchID, sale.CustomerID, sale.Status,
		sale.Order.Currency, sale.Order.Subtotal, sale.Order.DiscountAmount,
		sale.Order.TaxAmount, sale.Order.DeliveryCost, sale.Order.GrandTotal,
		sale.TenderedAmount, sale.Outcome.Kind, sale.Resolution,
		sale.PostingID, sale.CreatedBy, sale.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sale: insert: %w", err)
	}
	return nil
}

func (s *txStore) InsertSaleLines(ctx context.Context, saleID uuid.UUID, lines []Line) error {
	for _, line := range lines {
		_, err := s.tx.Exec(ctx, `
			INSERT INTO sale_lines (sale_id, product_id, variant_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)`,
			saleID, line.ProductID, line.VariantID, line.Quantity, line.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("sale: insert line: %w", err)
		}
	}
	return nil
}

// GetSale loads a committed sale with its lines and stock movements.
func (r *Repository) GetSale(ctx context.Context, scope shared.Scope, id uuid.UUID) (Sale, error) {
	var out Sale
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, branch_id, customer_id, status, currency,
		       subtotal, discount_total, tax_total, delivery_cost, grand_total,
		       tendered_amount, payment_outcome, payment_resolution,
		       ledger_posting_id, created_by, created_at
		FROM sales
		WHERE id = $1 AND tenant_id = $2 AND branch_id = $3`,
		id, scope.TenantID, scope.BranchID,
	).Scan(
		&out.ID, &out.TenantID, &out.BranchID, &out.CustomerID, &out.Status,
		&out.Order.Currency, &out.Order.Subtotal, &out.Order.DiscountAmount,
		&out.Order.TaxAmount, &out.Order.DeliveryCost, &out.Order.GrandTotal,
		&out.TenderedAmount, &out.Outcome.Kind, &out.Resolution,
		&out.PostingID, &out.CreatedBy, &out.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, shared.ErrNotFound
	}
	if err != nil {
		return Sale{}, fmt.Errorf("sale: get: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT product_id, variant_id, quantity, unit_price
		FROM sale_lines WHERE sale_id = $1
		ORDER BY product_id`, id)
	if err != nil {
		return Sale{}, fmt.Errorf("sale: load lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ProductID, &line.VariantID, &line.Quantity, &line.UnitPrice); err != nil {
			return Sale{}, fmt.Errorf("sale: scan line: %w", err)
		}
		out.Lines = append(out.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return Sale{}, fmt.Errorf("sale: iterate lines: %w", err)
	}

	mrows, err := r.pool.Query(ctx, `
		SELECT id, sale_id, product_id, qty_delta, unit_cost, posted_at
		FROM stock_movements
		WHERE sale_id = $1 AND tenant_id = $2 AND branch_id = $3
		ORDER BY product_id`, id, scope.TenantID, scope.BranchID)
	if err != nil {
		return Sale{}, fmt.Errorf("sale: load movements: %w", err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var mv stock.Movement
		if err := mrows.Scan(&mv.ID, &mv.SaleID, &mv.ProductID, &mv.QtyDelta, &mv.UnitCost, &mv.PostedAt); err != nil {
			return Sale{}, fmt.Errorf("sale: scan movement: %w", err)
		}
		out.Movements = append(out.Movements, mv)
	}
	if err := mrows.Err(); err != nil {
		return Sale{}, fmt.Errorf("sale: iterate movements: %w", err)
	}
	return out, nil
}

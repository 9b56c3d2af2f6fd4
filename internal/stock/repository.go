package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// pgLockNotAvailable is the PostgreSQL error code raised when lock_timeout
// expires while waiting on FOR UPDATE.
const pgLockNotAvailable = "55P03"

// NewTxStore wraps a pgx transaction for stock operations. lockTimeout
// bounds every FOR UPDATE wait so a stuck lock cannot stall the checkout
// lane.
func NewTxStore(tx pgx.Tx, scope shared.Scope, lockTimeout time.Duration) TxStore {
	return &txStore{tx: tx, scope: scope, lockTimeout: lockTimeout}
}

type txStore struct {
	tx          pgx.Tx
	scope       shared.Scope
	lockTimeout time.Duration
	timeoutSet  bool
}

func (s *txStore) ensureLockTimeout(ctx context.Context) error {
	if s.timeoutSet || s.lockTimeout <= 0 {
		return nil
	}
	// SET LOCAL scopes the setting to the surrounding transaction.
	_, err := s.tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds()))
	if err != nil {
		return fmt.Errorf("stock: set lock timeout: %w", err)
	}
	s.timeoutSet = true
	return nil
}

func (s *txStore) GetLevelForUpdate(ctx context.Context, productID int64) (Level, error) {
	if err := s.ensureLockTimeout(ctx); err != nil {
		return Level{}, err
	}
	const q = `SELECT product_id, qty, avg_cost, updated_at
		FROM stock_levels
		WHERE tenant_id = $1 AND branch_id = $2 AND product_id = $3
		FOR UPDATE`
	var level Level
	err := s.tx.QueryRow(ctx, q, s.scope.TenantID, s.scope.BranchID, productID).Scan(
		&level.ProductID, &level.Qty, &level.AvgCost, &level.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No level row means the product has never been stocked here.
			return Level{ProductID: productID}, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
			return Level{}, ErrLockTimeout
		}
		return Level{}, fmt.Errorf("stock: get level: %w", err)
	}
	return level, nil
}

func (s *txStore) SetLevelQty(ctx context.Context, productID int64, qty int64) error {
	const q = `UPDATE stock_levels SET qty = $4, updated_at = NOW()
		WHERE tenant_id = $1 AND branch_id = $2 AND product_id = $3`
	tag, err := s.tx.Exec(ctx, q, s.scope.TenantID, s.scope.BranchID, productID, qty)
	if err != nil {
		return fmt.Errorf("stock: set level: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stock: level row missing for product %d", productID)
	}
	return nil
}

func (s *txStore) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	const q = `INSERT INTO stock_movements (tenant_id, branch_id, sale_id, product_id, qty_delta, unit_cost, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	var id int64
	err := s.tx.QueryRow(ctx, q, s.scope.TenantID, s.scope.BranchID, m.SaleID, m.ProductID, m.QtyDelta, m.UnitCost, m.PostedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("stock: insert movement: %w", err)
	}
	return id, nil
}

// Repository serves read-side stock queries outside the sale transaction.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetLevel returns the current level without locking. An unknown product is
// reported as zero on hand.
func (r *Repository) GetLevel(ctx context.Context, scope shared.Scope, productID int64) (Level, error) {
	var level Level
	err := r.pool.QueryRow(ctx, `
		SELECT product_id, qty, avg_cost, updated_at
		FROM stock_levels
		WHERE tenant_id = $1 AND branch_id = $2 AND product_id = $3`,
		scope.TenantID, scope.BranchID, productID,
	).Scan(&level.ProductID, &level.Qty, &level.AvgCost, &level.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Level{ProductID: productID}, nil
	}
	if err != nil {
		return Level{}, fmt.Errorf("stock: get level: %w", err)
	}
	return level, nil
}

// MovementFilter narrows ListMovements.
type MovementFilter struct {
	ProductID int64
	From      time.Time
	To        time.Time
	Limit     int
}

// ListMovements returns movements for a product, newest first.
func (r *Repository) ListMovements(ctx context.Context, scope shared.Scope, filter MovementFilter) ([]Movement, error) {
	if filter.ProductID == 0 {
		return nil, errors.New("stock: product required")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	const q = `SELECT id, sale_id, product_id, qty_delta, unit_cost, posted_at
		FROM stock_movements
		WHERE tenant_id = $1 AND branch_id = $2 AND product_id = $3
		  AND ($4::timestamptz IS NULL OR posted_at >= $4)
		  AND ($5::timestamptz IS NULL OR posted_at <= $5)
		ORDER BY posted_at DESC
		LIMIT $6`
	var from, to any
	if !filter.From.IsZero() {
		from = filter.From
	}
	if !filter.To.IsZero() {
		to = filter.To
	}
	rows, err := r.pool.Query(ctx, q, scope.TenantID, scope.BranchID, filter.ProductID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("stock: list movements: %w", err)
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.SaleID, &m.ProductID, &m.QtyDelta, &m.UnitCost, &m.PostedAt); err != nil {
			return nil, fmt.Errorf("stock: scan movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// NewTxStore wraps a pgx transaction for posting persistence.
func NewTxStore(tx pgx.Tx, scope shared.Scope) TxStore {
	return &txStore{tx: tx, scope: scope}
}

type txStore struct {
	tx    pgx.Tx
	scope shared.Scope
}

func (s *txStore) InsertPosting(ctx context.Context, input PostingInput) (int64, error) {
	const q = `INSERT INTO ledger_postings (tenant_id, branch_id, source_module, source_id, memo, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	var id int64
	err := s.tx.QueryRow(ctx, q, s.scope.TenantID, s.scope.BranchID, input.SourceModule, input.SourceID, input.Memo, input.PostedAt).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrSourceAlreadyLinked
		}
		return 0, fmt.Errorf("ledger: insert posting: %w", err)
	}
	return id, nil
}

func (s *txStore) InsertPostingLines(ctx context.Context, postingID int64, lines []PostingLineInput) error {
	const q = `INSERT INTO ledger_posting_lines (posting_id, account_id, debit, credit)
		VALUES ($1, $2, $3, $4)`
	for _, line := range lines {
		if _, err := s.tx.Exec(ctx, q, postingID, line.AccountID, line.Debit, line.Credit); err != nil {
			return err
		}
	}
	return nil
}

// MappingRepository reads account mappings from PostgreSQL.
type MappingRepository struct {
	pool *pgxpool.Pool
}

// NewMappingRepository constructs MappingRepository.
func NewMappingRepository(pool *pgxpool.Pool) *MappingRepository {
	return &MappingRepository{pool: pool}
}

// Get returns the mapping for (tenant, module, key).
func (r *MappingRepository) Get(ctx context.Context, tenantID int64, module, key string) (AccountMapping, error) {
	const q = `SELECT module, key, account_id FROM account_mappings
		WHERE tenant_id = $1 AND module = $2 AND key = $3`
	var m AccountMapping
	err := r.pool.QueryRow(ctx, q, tenantID, module, key).Scan(&m.Module, &m.Key, &m.AccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountMapping{}, fmt.Errorf("%w: %s/%s", ErrMappingNotFound, module, key)
		}
		return AccountMapping{}, fmt.Errorf("ledger: get mapping: %w", err)
	}
	return m, nil
}

// UnbalancedPosting is a posting whose line sums disagree, found by the
// integrity scan. Its existence indicates a defect somewhere upstream.
type UnbalancedPosting struct {
	PostingID int64
	Debit     string
	Credit    string
}

// FindUnbalancedPostings scans posting line sums. Used by the nightly
// integrity job; the posting path already rejects imbalance before commit,
// so any hit here is a defect worth an operator page.
func FindUnbalancedPostings(ctx context.Context, pool *pgxpool.Pool, limit int) ([]UnbalancedPosting, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT posting_id, SUM(debit)::text, SUM(credit)::text
		FROM ledger_posting_lines
		GROUP BY posting_id
		HAVING SUM(debit) <> SUM(credit)
		LIMIT $1`
	rows, err := pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: integrity scan: %w", err)
	}
	defer rows.Close()

	var out []UnbalancedPosting
	for rows.Next() {
		var p UnbalancedPosting
		if err := rows.Scan(&p.PostingID, &p.Debit, &p.Credit); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

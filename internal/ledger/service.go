package ledger

import (
	"context"
	"fmt"
)

// TxStore exposes posting persistence inside a sale transaction.
type TxStore interface {
	InsertPosting(ctx context.Context, input PostingInput) (int64, error)
	InsertPostingLines(ctx context.Context, postingID int64, lines []PostingLineInput) error
}

// Service validates and persists postings.
type Service struct{}

// NewService constructs the ledger service.
func NewService() *Service {
	return &Service{}
}

// Post asserts the balance invariant and commits the posting as one
// immutable unit. An imbalance aborts the caller's transaction.
func (s *Service) Post(ctx context.Context, tx TxStore, input PostingInput) (Posting, error) {
	if err := input.Validate(); err != nil {
		return Posting{}, err
	}
	id, err := tx.InsertPosting(ctx, input)
	if err != nil {
		return Posting{}, err
	}
	if err := tx.InsertPostingLines(ctx, id, input.Lines); err != nil {
		return Posting{}, fmt.Errorf("ledger: insert lines: %w", err)
	}
	return Posting{
		ID:           id,
		SourceModule: input.SourceModule,
		SourceID:     input.SourceID,
		Memo:         input.Memo,
		PostedAt:     input.PostedAt,
		Lines:        input.Lines,
	}, nil
}

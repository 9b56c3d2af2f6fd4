package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/ledger"
	"github.com/meridian-pos/meridian-pos/internal/observability"
)

// NewLedgerIntegrityHandler scans posting lines for debit/credit drift. The
// engine validates every posting before commit, so any hit here means data
// was mutated outside the application and someone needs to look.
func NewLedgerIntegrityHandler(pool *pgxpool.Pool, logger *slog.Logger, metrics *observability.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload LedgerIntegrityPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		unbalanced, err := ledger.FindUnbalancedPostings(ctx, pool, payload.Limit)
		if err != nil {
			metrics.JobProcessed("ledger_integrity", "error")
			return err
		}
		for _, posting := range unbalanced {
			logger.Error("unbalanced ledger posting detected",
				slog.Int64("posting_id", posting.PostingID),
				slog.String("debit", posting.Debit),
				slog.String("credit", posting.Credit),
			)
		}
		if len(unbalanced) == 0 {
			logger.Info("ledger integrity scan clean", slog.String("job", "ledger_integrity"))
			metrics.JobProcessed("ledger_integrity", "ok")
		} else {
			metrics.JobProcessed("ledger_integrity", "violations")
		}
		return nil
	}
}

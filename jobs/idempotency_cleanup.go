package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-pos/meridian-pos/internal/observability"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

const defaultIdempotencyRetention = 48 * time.Hour

// NewIdempotencyCleanupHandler prunes request keys past their retention so
// the table stays small and clients can safely reuse old ids.
func NewIdempotencyCleanupHandler(store *shared.IdempotencyStore, logger *slog.Logger, metrics *observability.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload IdempotencyCleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		retention := defaultIdempotencyRetention
		if payload.RetentionHours > 0 {
			retention = time.Duration(payload.RetentionHours) * time.Hour
		}
		if err := store.Cleanup(ctx, retention); err != nil {
			metrics.JobProcessed("idempotency_cleanup", "error")
			return err
		}
		logger.Info("idempotency keys pruned", slog.Duration("retention", retention))
		metrics.JobProcessed("idempotency_cleanup", "ok")
		return nil
	}
}

package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/shohoj-krishi/shohoj-krishi/internal/audit"
)

// NewAuditPruneHandler deletes expired rows from the sign-in trail.
func NewAuditPruneHandler(repo *audit.Repository, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		removed, err := repo.PruneExpired(ctx, time.Now())
		if err != nil {
			if logger != nil {
				logger.Error("audit prune failed",
					slog.String("job", TaskAuditPrune), slog.Any("error", err))
			}
			return err
		}
		if logger != nil {
			logger.Info("pruned sign-in trail",
				slog.String("job", TaskAuditPrune),
				slog.Int64("removed", removed))
		}
		return nil
	}
}

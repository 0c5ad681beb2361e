package sqlite

import (
	"context"
	"log/slog"
	"time"

	"github.com/streamgate/streamgate/internal/cron"
	"github.com/streamgate/streamgate/internal/history"
)

// pruneJob deletes issuance rows whose streaming token has expired. The
// rows are advisory history; the token store enforces actual expiry.
type pruneJob struct {
	store        history.Store
	logger       *slog.Logger
	scheduleExpr string
}

// Compile-time interface check.
var _ cron.Job = (*pruneJob)(nil)

// Name implements cron.Job.
func (j *pruneJob) Name() string { return "history_prune" }

// Schedule implements cron.Job.
func (j *pruneJob) Schedule() string {
	if j.scheduleExpr != "" {
		return j.scheduleExpr
	}
	return defaultSchedule
}

// Run implements cron.Job.
func (j *pruneJob) Run(ctx context.Context) error {
	pruned, err := j.store.PruneExpired(ctx, time.Now())
	if err != nil {
		return err
	}
	if pruned > 0 {
		j.logger.Info("pruned expired history rows", "count", pruned)
	}
	return nil
}

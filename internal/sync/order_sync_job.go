package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/soundforms/atelier-backend/internal/reconcile"
	"github.com/soundforms/atelier-backend/internal/upstream"
	"github.com/soundforms/atelier-backend/pkg/logger"
)

// orderReconciler is the slice of the reconciliation engine the job needs.
type orderReconciler interface {
	ReconcileBatch(ctx context.Context, orderNumbers []string) (*reconcile.BatchResult, error)
}

// changeLister finds upstream orders that moved since the watermark.
type changeLister interface {
	ListUpdatedSince(ctx context.Context, since time.Time) ([]*upstream.OrderSnapshot, error)
}

// watermark is the checkpoint surface the job depends on.
type watermark interface {
	Last(ctx context.Context) time.Time
	Advance(ctx context.Context, to time.Time) error
}

// OrderSyncJobParams configure the periodic order sweep.
type OrderSyncJobParams struct {
	Logger     *logger.Logger
	Feed       changeLister
	Reconciler orderReconciler
	Checkpoint watermark
}

// NewOrderSyncJob builds the job that pulls changed upstream orders and
// reconciles each one.
func NewOrderSyncJob(params OrderSyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Feed == nil {
		return nil, fmt.Errorf("upstream feed required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	if params.Checkpoint == nil {
		return nil, fmt.Errorf("checkpoint required")
	}
	return &orderSyncJob{
		logg:       params.Logger,
		feed:       params.Feed,
		reconciler: params.Reconciler,
		checkpoint: params.Checkpoint,
		now:        time.Now,
	}, nil
}

type orderSyncJob struct {
	logg       *logger.Logger
	feed       changeLister
	reconciler orderReconciler
	checkpoint watermark
	now        func() time.Time
}

func (j *orderSyncJob) Name() string { return "order-sync" }

// Run sweeps upstream changes since the last watermark. The watermark only
// advances when every order in the sweep reconciled, so failed orders are
// retried on the next cycle.
func (j *orderSyncJob) Run(ctx context.Context) error {
	since := j.checkpoint.Last(ctx)
	started := j.now().UTC()

	snapshots, err := j.feed.ListUpdatedSince(ctx, since)
	if err != nil {
		return fmt.Errorf("list upstream changes: %w", err)
	}
	if len(snapshots) == 0 {
		j.logg.Info(j.logg.WithField(ctx, "since", since), "no upstream changes")
		return j.checkpoint.Advance(ctx, started)
	}

	numbers := make([]string, 0, len(snapshots))
	for _, snapshot := range snapshots {
		numbers = append(numbers, snapshot.Reference)
	}

	batch, err := j.reconciler.ReconcileBatch(ctx, numbers)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"since":      since,
		"changed":    len(snapshots),
		"reconciled": len(batch.Results),
		"failed":     len(batch.Errors),
	})
	if err != nil {
		j.logg.Warn(logCtx, "sweep finished with failures, watermark held back")
		return err
	}

	j.logg.Info(logCtx, "sweep complete")
	return j.checkpoint.Advance(ctx, started)
}

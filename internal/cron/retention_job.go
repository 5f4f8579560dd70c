package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/ticketcart/internal/cart"
	"github.com/angelmondragon/ticketcart/pkg/logger"
	"github.com/angelmondragon/ticketcart/pkg/metrics"
)

const retentionJobName = "cart-snapshot-retention"

type SnapshotRetentionJobParams struct {
	Logger    *logger.Logger
	Pruner    cart.Pruner
	Retention time.Duration
	Metrics   *metrics.JobMetrics
}

// NewSnapshotRetentionJob deletes cart snapshots untouched for longer than
// Retention, giving file and SQL storage the expiry Redis gets from its TTL.
func NewSnapshotRetentionJob(params SnapshotRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pruner == nil {
		return nil, fmt.Errorf("snapshot pruner required")
	}
	if params.Retention <= 0 {
		return nil, fmt.Errorf("retention must be positive")
	}
	return &snapshotRetentionJob{
		logg:      params.Logger,
		pruner:    params.Pruner,
		retention: params.Retention,
		metrics:   params.Metrics,
		now:       time.Now,
	}, nil
}

type snapshotRetentionJob struct {
	logg      *logger.Logger
	pruner    cart.Pruner
	retention time.Duration
	metrics   *metrics.JobMetrics
	now       func() time.Time
}

func (j *snapshotRetentionJob) Name() string { return retentionJobName }

func (j *snapshotRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	removed, err := j.pruner.PruneBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cart snapshot retention: %w", err)
	}
	j.metrics.AddPruned(retentionJobName, removed)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":            cutoff,
		"retention":         j.retention.String(),
		"snapshots_deleted": removed,
	})
	j.logg.Info(logCtx, "sweeper.snapshots_pruned")
	return nil
}

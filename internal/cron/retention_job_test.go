package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ticketcart/pkg/logger"
	"github.com/angelmondragon/ticketcart/pkg/metrics"
)

type stubPruner struct {
	cutoff  time.Time
	removed int64
	err     error
}

func (s *stubPruner) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return s.removed, s.err
}

func TestSnapshotRetentionJobUsesCutoff(t *testing.T) {
	pruner := &stubPruner{removed: 4}
	reg := prometheus.NewRegistry()
	job, err := NewSnapshotRetentionJob(SnapshotRetentionJobParams{
		Logger:    logger.Nop(),
		Pruner:    pruner,
		Retention: 30 * 24 * time.Hour,
		Metrics:   metrics.NewJobMetrics(reg),
	})
	require.NoError(t, err)

	now := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	job.(*snapshotRetentionJob).now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.Add(-30*24*time.Hour), pruner.cutoff)
	assert.Equal(t, "cart-snapshot-retention", job.Name())

	count, err := testutil.GatherAndCount(reg, "cart_snapshots_pruned_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSnapshotRetentionJobWrapsErrors(t *testing.T) {
	boom := errors.New("disk gone")
	job, err := NewSnapshotRetentionJob(SnapshotRetentionJobParams{
		Logger:    logger.Nop(),
		Pruner:    &stubPruner{err: boom},
		Retention: time.Hour,
	})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestSnapshotRetentionJobValidation(t *testing.T) {
	_, err := NewSnapshotRetentionJob(SnapshotRetentionJobParams{Logger: logger.Nop(), Retention: time.Hour})
	require.Error(t, err)
	_, err = NewSnapshotRetentionJob(SnapshotRetentionJobParams{Logger: logger.Nop(), Pruner: &stubPruner{}})
	require.Error(t, err)
}

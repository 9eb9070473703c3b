package jobs

import (
	"context"
	"time"

	"infinite-experiment/fmsuplink/internal/logging"
)

// HistoryPruner deletes uplink runs older than a cutoff
type HistoryPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// HistoryRetentionJob keeps the uplink history table within its retention
// window
type HistoryRetentionJob struct {
	repo      HistoryPruner
	retention time.Duration
	now       func() time.Time
}

func NewHistoryRetentionJob(repo HistoryPruner, retention time.Duration) *HistoryRetentionJob {
	return &HistoryRetentionJob{repo: repo, retention: retention, now: time.Now}
}

// Run deletes every run older than the retention window
func (j *HistoryRetentionJob) Run(ctx context.Context) (int64, error) {
	if j.retention <= 0 {
		return 0, nil
	}

	start := j.now()
	cutoff := start.Add(-j.retention).UTC()
	deleted, err := j.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		logging.Error("History retention run failed", "error", err)
		return 0, err
	}

	logging.Info("History retention run complete",
		"deleted", deleted,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return deleted, nil
}

// RunScheduled runs the job immediately and then every interval until ctx
// is cancelled
func (j *HistoryRetentionJob) RunScheduled(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	_, _ = j.Run(ctx)

	for {
		select {
		case <-ticker.C:
			_, _ = j.Run(ctx)
		case <-ctx.Done():
			logging.Info("History retention job shutting down")
			return
		}
	}
}

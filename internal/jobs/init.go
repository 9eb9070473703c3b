package jobs

import (
	"context"
	"time"

	"infinite-experiment/fmsuplink/internal/logging"
)

type JobsContainer struct {
	HistoryRetention *HistoryRetentionJob
}

// InitializeJobs starts the scheduled background jobs. history may be nil
// when the history table is disabled.
func InitializeJobs(ctx context.Context, history HistoryPruner, retention time.Duration) *JobsContainer {
	c := &JobsContainer{}

	if history != nil && retention > 0 {
		c.HistoryRetention = NewHistoryRetentionJob(history, retention)
		go c.HistoryRetention.RunScheduled(ctx, 6*time.Hour)
		logging.Info("History retention job scheduled", "retention", retention.String())
	}

	return c
}

package workers

import (
	"context"
	"time"

	"infinite-experiment/fmsuplink/internal/logging"
)

// QueueStatsSource reports the size of the uplink job stream
type QueueStatsSource interface {
	GetQueueLength(ctx context.Context) (int64, error)
	GetPendingCount(ctx context.Context) (int64, error)
}

// Alert thresholds for the job stream
const (
	pendingAlertThreshold = 100
	queueAlertThreshold   = 1000
)

// UplinkQueueMonitor logs job stream health
type UplinkQueueMonitor struct {
	queue QueueStatsSource
}

// NewUplinkQueueMonitor creates a new queue monitor
func NewUplinkQueueMonitor(queue QueueStatsSource) *UplinkQueueMonitor {
	return &UplinkQueueMonitor{queue: queue}
}

// QueueStats is one health sample of the job stream
type QueueStats struct {
	QueueLength  int64
	PendingCount int64
	Status       string
	LastChecked  time.Time
}

// Start samples the queue every interval until ctx is cancelled
func (m *UplinkQueueMonitor) Start(ctx context.Context, interval time.Duration) {
	logging.Info("Starting uplink queue monitoring", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately on start
	m.checkQueue(ctx)

	for {
		select {
		case <-ctx.Done():
			logging.Info("Uplink queue monitor shutting down")
			return
		case <-ticker.C:
			m.checkQueue(ctx)
		}
	}
}

func (m *UplinkQueueMonitor) checkQueue(ctx context.Context) {
	stats, err := m.Stats(ctx)
	if err != nil {
		logging.Error("Error getting uplink queue stats", "error", err)
		return
	}

	if stats.Status != "OK" {
		logging.Warn("Uplink queue needs attention", "queue", stats.QueueLength, "pending", stats.PendingCount, "status", stats.Status)
		return
	}
	logging.Debug("Uplink queue health", "queue", stats.QueueLength, "pending", stats.PendingCount)
}

// Stats samples the stream once
func (m *UplinkQueueMonitor) Stats(ctx context.Context) (*QueueStats, error) {
	length, err := m.queue.GetQueueLength(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := m.queue.GetPendingCount(ctx)
	if err != nil {
		return nil, err
	}

	status := "OK"
	if pending > pendingAlertThreshold {
		status = "HIGH PENDING"
	} else if length > queueAlertThreshold {
		status = "HIGH QUEUE"
	}

	return &QueueStats{
		QueueLength:  length,
		PendingCount: pending,
		Status:       status,
		LastChecked:  time.Now(),
	}, nil
}

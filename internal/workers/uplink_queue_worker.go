package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"infinite-experiment/fmsuplink/internal/common"
	"infinite-experiment/fmsuplink/internal/logging"
	"infinite-experiment/fmsuplink/internal/metrics"
	"infinite-experiment/fmsuplink/internal/models/dtos/responses"
	"infinite-experiment/fmsuplink/internal/services"
)

// UplinkQueue is the consumer side of the uplink job stream
type UplinkQueue interface {
	CreateConsumerGroup(ctx context.Context) error
	Dequeue(ctx context.Context, consumerName string, blockTime time.Duration) (*common.UplinkQueueItem, string, error)
	Ack(ctx context.Context, messageID string) error
	ClaimStale(ctx context.Context, consumerName string, minIdleTime time.Duration) ([]*common.UplinkQueueItem, []string, error)
}

// Uplinker runs one uplink
type Uplinker interface {
	Uplink(ctx context.Context, pilotID string, opts services.UplinkOptions) (*services.UplinkResult, error)
}

// JobRecorder stores job state transitions
type JobRecorder interface {
	Transition(item *common.UplinkQueueItem, state string, result *responses.UplinkResponse, runErr error) error
}

// UplinkWorker processes queued uplink runs. Each run builds its own flight
// plan, so consumers share nothing but the queue.
type UplinkWorker struct {
	workerID  string
	queue     UplinkQueue
	uplinker  Uplinker
	jobs      JobRecorder
	metrics   *metrics.MetricsRegistry
	blockTime time.Duration
	claimIdle time.Duration
	backoff   time.Duration
}

// NewUplinkWorker creates a new uplink queue worker
func NewUplinkWorker(
	workerID string,
	queue UplinkQueue,
	uplinker Uplinker,
	jobs JobRecorder,
	metricsReg *metrics.MetricsRegistry,
	blockTime, claimIdle time.Duration,
) *UplinkWorker {
	if blockTime <= 0 {
		blockTime = 5 * time.Second
	}
	if claimIdle <= 0 {
		claimIdle = 5 * time.Minute
	}
	return &UplinkWorker{
		workerID:  workerID,
		queue:     queue,
		uplinker:  uplinker,
		jobs:      jobs,
		metrics:   metricsReg,
		blockTime: blockTime,
		claimIdle: claimIdle,
		backoff:   time.Second,
	}
}

// Start runs numWorkers consumers plus a stale-message claimer and blocks
// until ctx is cancelled and all of them have stopped.
func (w *UplinkWorker) Start(ctx context.Context, numWorkers int) error {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	logging.Info("Starting uplink workers", "count", numWorkers, "worker_id", w.workerID)

	if err := w.queue.CreateConsumerGroup(ctx); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		workerName := fmt.Sprintf("%s-worker-%d", w.workerID, i)

		go func(workerName string) {
			defer wg.Done()
			w.processQueue(ctx, workerName)
		}(workerName)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.claimStaleMessages(ctx, 2*time.Minute)
	}()

	wg.Wait()
	logging.Info("All uplink workers stopped", "worker_id", w.workerID)
	return nil
}

// processQueue continuously processes uplink jobs for one consumer
func (w *UplinkWorker) processQueue(ctx context.Context, workerName string) {
	logging.Info("Uplink worker started", "worker", workerName)

	processedCount := 0
	errorCount := 0

	for {
		select {
		case <-ctx.Done():
			logging.Info("Uplink worker shutting down", "worker", workerName, "processed", processedCount, "errors", errorCount)
			return
		default:
		}

		item, messageID, err := w.queue.Dequeue(ctx, workerName, w.blockTime)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logging.Error("Error dequeuing uplink job", "worker", workerName, "error", err)
			if messageID != "" {
				// undecodable message; drop it rather than redeliver forever
				w.ack(ctx, workerName, messageID)
				continue
			}
			w.sleep(ctx, w.backoff)
			continue
		}
		if item == nil {
			continue
		}

		if err := w.processJob(ctx, item); err != nil {
			errorCount++
		} else {
			processedCount++
		}
		// acknowledged either way: the failure is recorded on the job
		w.ack(ctx, workerName, messageID)
	}
}

func (w *UplinkWorker) ack(ctx context.Context, workerName, messageID string) {
	if err := w.queue.Ack(ctx, messageID); err != nil {
		logging.Error("Error acknowledging uplink job", "worker", workerName, "message_id", messageID, "error", err)
	}
}

func (w *UplinkWorker) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// processJob runs one uplink and stores its outcome on the job
func (w *UplinkWorker) processJob(ctx context.Context, item *common.UplinkQueueItem) error {
	log := logging.WithJob(item.JobID, item.PilotID)

	if w.metrics != nil {
		w.metrics.JobsInFlight.Inc()
		defer w.metrics.JobsInFlight.Dec()
	}

	if err := w.jobs.Transition(item, responses.JobStateRunning, nil, nil); err != nil {
		log.Warnw("Failed to mark job running", "error", err)
	}

	procedures := item.Procedures
	result, runErr := w.uplinker.Uplink(ctx, item.PilotID, services.UplinkOptions{Procedures: &procedures})

	var resp *responses.UplinkResponse
	if result != nil {
		resp = services.UplinkResponse(result, runErr)
	}

	state := responses.JobStateDone
	if runErr != nil {
		state = responses.JobStateFailed
		log.Warnw("Uplink job failed", "error", runErr)
	} else {
		log.Infow("Uplink job done", "legs", len(resp.Legs), "duration_ms", resp.DurationMs)
	}

	if err := w.jobs.Transition(item, state, resp, runErr); err != nil {
		log.Errorw("Failed to store job result", "error", err)
		if runErr == nil {
			return err
		}
	}
	return runErr
}

// claimStaleMessages periodically takes over jobs left pending by dead
// consumers
func (w *UplinkWorker) claimStaleMessages(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	claimerName := fmt.Sprintf("%s-claimer", w.workerID)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			items, messageIDs, err := w.queue.ClaimStale(ctx, claimerName, w.claimIdle)
			if err != nil {
				logging.Error("Error claiming stale uplink jobs", "error", err)
				continue
			}
			if len(items) > 0 {
				logging.Info("Claimed stale uplink jobs", "count", len(items))
			}
			for i, item := range items {
				_ = w.processJob(ctx, item)
				w.ack(ctx, claimerName, messageIDs[i])
			}
		}
	}
}

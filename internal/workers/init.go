package workers

import (
	"context"
	"sync"
	"time"

	"infinite-experiment/fmsuplink/internal/common"
	"infinite-experiment/fmsuplink/internal/config"
	"infinite-experiment/fmsuplink/internal/logging"
	"infinite-experiment/fmsuplink/internal/metrics"
)

type WorkersContainer struct {
	Uplink  *UplinkWorker
	Monitor *UplinkQueueMonitor

	wg sync.WaitGroup
}

// InitWorkers starts the uplink consumers and the queue monitor. They stop
// when ctx is cancelled; Wait blocks until they have.
func InitWorkers(
	ctx context.Context,
	cfg config.WorkerConfig,
	redQ *common.RedisQueueService,
	uplinker Uplinker,
	jobs JobRecorder,
	metricsReg *metrics.MetricsRegistry,
) *WorkersContainer {
	c := &WorkersContainer{
		Uplink:  NewUplinkWorker("uplink_queue", redQ, uplinker, jobs, metricsReg, cfg.BlockTime, cfg.ClaimIdle),
		Monitor: NewUplinkQueueMonitor(redQ),
	}

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		if err := c.Uplink.Start(ctx, cfg.Count); err != nil {
			logging.Error("Uplink workers failed to start", "error", err)
		}
	}()
	go func() {
		defer c.wg.Done()
		c.Monitor.Start(ctx, 30*time.Second)
	}()

	return c
}

func (c *WorkersContainer) Wait() {
	c.wg.Wait()
}

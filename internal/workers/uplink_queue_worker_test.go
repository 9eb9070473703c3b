package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"infinite-experiment/fmsuplink/internal/common"
	"infinite-experiment/fmsuplink/internal/extract"
	"infinite-experiment/fmsuplink/internal/models/dtos/responses"
	"infinite-experiment/fmsuplink/internal/services"
	"infinite-experiment/fmsuplink/internal/uplink"
)

type queuedMessage struct {
	id   string
	item *common.UplinkQueueItem
	err  error
}

// chanQueue is an in-memory UplinkQueue
type chanQueue struct {
	messages chan queuedMessage

	mu    sync.Mutex
	acked []string
}

func newChanQueue() *chanQueue {
	return &chanQueue{messages: make(chan queuedMessage, 16)}
}

func (q *chanQueue) CreateConsumerGroup(ctx context.Context) error { return nil }

func (q *chanQueue) Dequeue(ctx context.Context, consumerName string, blockTime time.Duration) (*common.UplinkQueueItem, string, error) {
	t := time.NewTimer(blockTime)
	defer t.Stop()
	select {
	case m := <-q.messages:
		return m.item, m.id, m.err
	case <-t.C:
		return nil, "", nil
	case <-ctx.Done():
		return nil, "", ctx.Err()
	}
}

func (q *chanQueue) Ack(ctx context.Context, messageID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, messageID)
	return nil
}

func (q *chanQueue) ClaimStale(ctx context.Context, consumerName string, minIdleTime time.Duration) ([]*common.UplinkQueueItem, []string, error) {
	return nil, nil, nil
}

func (q *chanQueue) ackedIDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.acked...)
}

type mockUplinker struct {
	uplinkFunc func(ctx context.Context, pilotID string, opts services.UplinkOptions) (*services.UplinkResult, error)
}

func (m *mockUplinker) Uplink(ctx context.Context, pilotID string, opts services.UplinkOptions) (*services.UplinkResult, error) {
	return m.uplinkFunc(ctx, pilotID, opts)
}

func planResult(origin, destination string) *services.UplinkResult {
	summary := extract.RouteSummary{Origin: origin, Destination: destination}
	return &services.UplinkResult{Summary: summary, Plan: services.NewFlightPlan(summary)}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startWorker(t *testing.T, w *UplinkWorker, n int) (cancel func()) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx, n) }()

	return func() {
		cancelCtx()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("worker did not stop after cancel")
		}
	}
}

func TestUplinkWorker_ProcessesJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	queue := newChanQueue()
	jobs := services.NewUplinkJobService(nil, common.NewMemoryCache(time.Hour, 0), time.Hour)

	var gotProcedures []bool
	var mu sync.Mutex
	uplinker := &mockUplinker{uplinkFunc: func(ctx context.Context, pilotID string, opts services.UplinkOptions) (*services.UplinkResult, error) {
		mu.Lock()
		gotProcedures = append(gotProcedures, *opts.Procedures)
		mu.Unlock()
		if pilotID == "broken" {
			return planResult("EDDF", "EGLL"), &uplink.SynthesisError{Code: "NAVDATA_NOT_FOUND", ChunkIndex: 2, Err: uplink.ErrNotFound}
		}
		return planResult("EDDF", "EDDM"), nil
	}}

	w := NewUplinkWorker("test", queue, uplinker, jobs, nil, 20*time.Millisecond, time.Minute)
	stop := startWorker(t, w, 2)

	queue.messages <- queuedMessage{id: "1-0", item: &common.UplinkQueueItem{JobID: "job-ok", PilotID: "123", Procedures: true}}
	queue.messages <- queuedMessage{id: "2-0", item: &common.UplinkQueueItem{JobID: "job-bad", PilotID: "broken"}}

	waitFor(t, func() bool { return len(queue.ackedIDs()) == 2 })
	stop()

	assert.ElementsMatch(t, []string{"1-0", "2-0"}, queue.ackedIDs())
	assert.ElementsMatch(t, []bool{true, false}, gotProcedures)

	ok, err := jobs.Get("job-ok")
	require.NoError(t, err)
	require.NotNil(t, ok)
	assert.Equal(t, responses.JobStateDone, ok.State)
	require.NotNil(t, ok.Result)
	assert.Equal(t, "EDDF", ok.Result.Summary.Origin)
	assert.Len(t, ok.Result.Legs, 3)

	bad, err := jobs.Get("job-bad")
	require.NoError(t, err)
	require.NotNil(t, bad)
	assert.Equal(t, responses.JobStateFailed, bad.State)
	assert.NotEmpty(t, bad.Error)
	require.NotNil(t, bad.Result)
	require.NotNil(t, bad.Result.FailedChunk)
	assert.Equal(t, 2, *bad.Result.FailedChunk)
}

func TestUplinkWorker_AcksUndecodableMessages(t *testing.T) {
	defer goleak.VerifyNone(t)

	queue := newChanQueue()
	jobs := services.NewUplinkJobService(nil, common.NewMemoryCache(time.Hour, 0), time.Hour)
	called := false
	uplinker := &mockUplinker{uplinkFunc: func(ctx context.Context, pilotID string, opts services.UplinkOptions) (*services.UplinkResult, error) {
		called = true
		return nil, nil
	}}

	w := NewUplinkWorker("test", queue, uplinker, jobs, nil, 20*time.Millisecond, time.Minute)
	stop := startWorker(t, w, 1)

	queue.messages <- queuedMessage{id: "9-0", err: errors.New("invalid message format")}
	waitFor(t, func() bool { return len(queue.ackedIDs()) == 1 })
	stop()

	assert.False(t, called)
}

func TestUplinkWorker_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	w := NewUplinkWorker("idle", newChanQueue(), &mockUplinker{}, nil, nil, 10*time.Millisecond, time.Minute)
	stop := startWorker(t, w, 3)
	time.Sleep(30 * time.Millisecond)
	stop()
}

type staticStats struct {
	length, pending int64
	err             error
}

func (s staticStats) GetQueueLength(ctx context.Context) (int64, error)  { return s.length, s.err }
func (s staticStats) GetPendingCount(ctx context.Context) (int64, error) { return s.pending, s.err }

func TestUplinkQueueMonitor_Stats(t *testing.T) {
	stats, err := NewUplinkQueueMonitor(staticStats{length: 3, pending: 1}).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OK", stats.Status)

	stats, err = NewUplinkQueueMonitor(staticStats{length: 3, pending: 500}).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "HIGH PENDING", stats.Status)

	stats, err = NewUplinkQueueMonitor(staticStats{length: 5000}).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "HIGH QUEUE", stats.Status)

	_, err = NewUplinkQueueMonitor(staticStats{err: errors.New("down")}).Stats(context.Background())
	assert.Error(t, err)
}

func TestUplinkQueueMonitor_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewUplinkQueueMonitor(staticStats{}).Start(ctx, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done
}

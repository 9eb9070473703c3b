package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinite-experiment/fmsuplink/internal/common"
	"infinite-experiment/fmsuplink/internal/models/dtos/responses"
)

type mockEnqueuer struct {
	items []*common.UplinkQueueItem
	err   error
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, item *common.UplinkQueueItem) error {
	if m.err != nil {
		return m.err
	}
	m.items = append(m.items, item)
	return nil
}

func TestUplinkJobService_Enqueue(t *testing.T) {
	queue := &mockEnqueuer{}
	svc := NewUplinkJobService(queue, common.NewMemoryCache(time.Hour, 0), time.Hour)

	job, err := svc.Enqueue(context.Background(), " jdoe ", false, "dispatcher")
	require.NoError(t, err)
	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, "jdoe", job.PilotID)
	assert.Equal(t, responses.JobStateQueued, job.State)

	require.Len(t, queue.items, 1)
	assert.Equal(t, job.JobID, queue.items[0].JobID)
	assert.False(t, queue.items[0].Procedures)
	assert.Equal(t, "dispatcher", queue.items[0].RequestedBy)

	stored, err := svc.Get(job.JobID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, responses.JobStateQueued, stored.State)
}

func TestUplinkJobService_EnqueueFailureDropsJob(t *testing.T) {
	cache := common.NewMemoryCache(time.Hour, 0)
	svc := NewUplinkJobService(&mockEnqueuer{err: errors.New("redis down")}, cache, time.Hour)

	job, err := svc.Enqueue(context.Background(), "jdoe", true, "")
	assert.Error(t, err)
	assert.Nil(t, job)
	assert.Zero(t, cache.ItemCount())
}

func TestUplinkJobService_Unavailable(t *testing.T) {
	svc := NewUplinkJobService(nil, common.NewMemoryCache(time.Hour, 0), time.Hour)
	_, err := svc.Enqueue(context.Background(), "jdoe", true, "")
	assert.ErrorIs(t, err, ErrQueueUnavailable)

	svc = NewUplinkJobService(&mockEnqueuer{}, common.NewMemoryCache(time.Hour, 0), time.Hour)
	_, err = svc.Enqueue(context.Background(), "  ", true, "")
	assert.Error(t, err)
}

func TestUplinkJobService_Transition(t *testing.T) {
	svc := NewUplinkJobService(nil, common.NewMemoryCache(time.Hour, 0), time.Hour)
	item := &common.UplinkQueueItem{JobID: "expired-job", PilotID: "jdoe", CreatedAt: time.Now().UTC()}

	// unknown jobs are recreated from the queue item
	require.NoError(t, svc.Transition(item, responses.JobStateRunning, nil, nil))
	job, err := svc.Get("expired-job")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, responses.JobStateRunning, job.State)
	assert.Equal(t, "jdoe", job.PilotID)

	failed := 4
	result := &responses.UplinkResponse{FailedChunk: &failed, ErrorCode: "NAVDATA_NOT_FOUND"}
	require.NoError(t, svc.Transition(item, responses.JobStateFailed, result, errors.New("fix KERAX not found")))

	job, err = svc.Get("expired-job")
	require.NoError(t, err)
	assert.Equal(t, responses.JobStateFailed, job.State)
	assert.Equal(t, "fix KERAX not found", job.Error)
	require.NotNil(t, job.Result)
	require.NotNil(t, job.Result.FailedChunk)
	assert.Equal(t, 4, *job.Result.FailedChunk)

	missing, err := svc.Get("never-queued")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

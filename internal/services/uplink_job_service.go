package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"infinite-experiment/fmsuplink/internal/common"
	"infinite-experiment/fmsuplink/internal/constants"
	"infinite-experiment/fmsuplink/internal/models/dtos/responses"
)

// ErrQueueUnavailable is returned when no job queue is configured
var ErrQueueUnavailable = errors.New(constants.MsgQueueUnavailable)

// JobEnqueuer adds uplink runs to the job stream
type JobEnqueuer interface {
	Enqueue(ctx context.Context, item *common.UplinkQueueItem) error
}

// UplinkJobService tracks queued uplink runs. Job state lives in the cache
// under uplink:job:<id>.
type UplinkJobService struct {
	queue JobEnqueuer
	cache common.CacheInterface
	ttl   time.Duration
}

func NewUplinkJobService(queue JobEnqueuer, cache common.CacheInterface, ttl time.Duration) *UplinkJobService {
	if ttl <= 0 {
		ttl = constants.DefaultJobTTL
	}
	return &UplinkJobService{queue: queue, cache: cache, ttl: ttl}
}

func jobKey(jobID string) string {
	return string(constants.CachePrefixUplinkJob) + jobID
}

// Enqueue records a queued job and adds it to the stream
func (s *UplinkJobService) Enqueue(ctx context.Context, pilotID string, procedures bool, requestedBy string) (*responses.UplinkJobResponse, error) {
	if s.queue == nil || s.cache == nil {
		return nil, ErrQueueUnavailable
	}
	pilotID = strings.TrimSpace(pilotID)
	if pilotID == "" {
		return nil, errors.New(constants.MsgPilotIDRequired)
	}

	now := time.Now().UTC()
	job := &responses.UplinkJobResponse{
		JobID:     uuid.New().String(),
		PilotID:   pilotID,
		State:     responses.JobStateQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Save(job); err != nil {
		return nil, err
	}

	item := &common.UplinkQueueItem{
		JobID:       job.JobID,
		PilotID:     pilotID,
		Procedures:  procedures,
		RequestedBy: requestedBy,
		CreatedAt:   now,
	}
	if err := s.queue.Enqueue(ctx, item); err != nil {
		s.cache.Delete(jobKey(job.JobID))
		return nil, err
	}
	return job, nil
}

// Get returns the job, or nil when it is unknown or expired
func (s *UplinkJobService) Get(jobID string) (*responses.UplinkJobResponse, error) {
	if s.cache == nil {
		return nil, ErrQueueUnavailable
	}
	var job responses.UplinkJobResponse
	found, err := common.GetValue(s.cache, jobKey(jobID), &job)
	if err != nil || !found {
		return nil, err
	}
	return &job, nil
}

// Save stores job, stamping UpdatedAt
func (s *UplinkJobService) Save(job *responses.UplinkJobResponse) error {
	job.UpdatedAt = time.Now().UTC()
	return common.SetValue(s.cache, jobKey(job.JobID), job, s.ttl)
}

// Transition moves a job to state. A job missing from the cache, for example
// after expiry, is recreated from item.
func (s *UplinkJobService) Transition(item *common.UplinkQueueItem, state string, result *responses.UplinkResponse, runErr error) error {
	job, err := s.Get(item.JobID)
	if err != nil || job == nil {
		job = &responses.UplinkJobResponse{
			JobID:     item.JobID,
			PilotID:   item.PilotID,
			CreatedAt: item.CreatedAt,
		}
	}

	job.State = state
	job.Result = result
	job.Error = ""
	if runErr != nil {
		job.Error = runErr.Error()
	}
	return s.Save(job)
}

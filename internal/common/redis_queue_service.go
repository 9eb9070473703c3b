package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"infinite-experiment/fmsuplink/internal/logging"
)

// RedisQueueService provides queue functionality using Redis Streams
type RedisQueueService struct {
	client *redis.Client
	stream string
	group  string
}

// NewRedisQueueService creates a queue on stream read by consumer group
func NewRedisQueueService(client *redis.Client, stream, group string) *RedisQueueService {
	return &RedisQueueService{
		client: client,
		stream: stream,
		group:  group,
	}
}

// UplinkQueueItem is one queued uplink run
type UplinkQueueItem struct {
	JobID       string    `msgpack:"job_id"`
	PilotID     string    `msgpack:"pilot_id"`
	Procedures  bool      `msgpack:"procedures"`
	RequestedBy string    `msgpack:"requested_by"`
	CreatedAt   time.Time `msgpack:"created_at"`
}

// EncodeQueueItem returns the stream field values for item
func EncodeQueueItem(item *UplinkQueueItem) (map[string]interface{}, error) {
	data, err := msgpack.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal uplink item: %w", err)
	}
	return map[string]interface{}{"data": data}, nil
}

// DecodeQueueItem parses the stream field values written by EncodeQueueItem
func DecodeQueueItem(values map[string]interface{}) (*UplinkQueueItem, error) {
	var raw []byte
	switch v := values["data"].(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return nil, errors.New("invalid message format: data field missing")
	}

	var item UplinkQueueItem
	if err := msgpack.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal uplink item: %w", err)
	}
	return &item, nil
}

// Enqueue adds an uplink run to the stream
func (s *RedisQueueService) Enqueue(ctx context.Context, item *UplinkQueueItem) error {
	values, err := EncodeQueueItem(item)
	if err != nil {
		return err
	}

	// XADD stream * data <msgpack>
	if err := s.client.XAdd(ctx, &redis.XAddArgs{Stream: s.stream, Values: values}).Err(); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}
	return nil
}

// Dequeue reads one new message for consumerName, blocking up to blockTime.
// Returns (nil, "", nil) when nothing arrived.
func (s *RedisQueueService) Dequeue(ctx context.Context, consumerName string, blockTime time.Duration) (*UplinkQueueItem, string, error) {
	// XREADGROUP GROUP group consumer BLOCK ms COUNT 1 STREAMS stream >
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: consumerName,
		Streams:  []string{s.stream, ">"},
		Count:    1,
		Block:    blockTime,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("failed to read from stream: %w", err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, "", nil
	}

	msg := streams[0].Messages[0]
	item, err := DecodeQueueItem(msg.Values)
	if err != nil {
		// poison message: return the id so the caller can ack it
		return nil, msg.ID, err
	}
	return item, msg.ID, nil
}

// Ack acknowledges successful processing of a message
func (s *RedisQueueService) Ack(ctx context.Context, messageID string) error {
	return s.client.XAck(ctx, s.stream, s.group, messageID).Err()
}

// CreateConsumerGroup creates the consumer group if it doesn't exist
func (s *RedisQueueService) CreateConsumerGroup(ctx context.Context) error {
	// XGROUP CREATE stream group 0 MKSTREAM
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil
	}
	return err
}

// GetQueueLength returns the number of messages in the stream
func (s *RedisQueueService) GetQueueLength(ctx context.Context) (int64, error) {
	length, err := s.client.XLen(ctx, s.stream).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}
	return length, nil
}

// GetPendingCount returns the number of unacknowledged messages
func (s *RedisQueueService) GetPendingCount(ctx context.Context) (int64, error) {
	pending, err := s.client.XPending(ctx, s.stream, s.group).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get pending count: %w", err)
	}
	return pending.Count, nil
}

// ClaimStale claims messages that have been pending for longer than
// minIdleTime, typically left behind by a dead worker.
func (s *RedisQueueService) ClaimStale(ctx context.Context, consumerName string, minIdleTime time.Duration) ([]*UplinkQueueItem, []string, error) {
	pending, err := s.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: s.stream,
		Group:  s.group,
		Start:  "-",
		End:    "+",
		Count:  100,
	}).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get pending messages: %w", err)
	}

	var staleIDs []string
	for _, p := range pending {
		if p.Idle >= minIdleTime {
			staleIDs = append(staleIDs, p.ID)
		}
	}
	if len(staleIDs) == 0 {
		return nil, nil, nil
	}

	messages, err := s.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   s.stream,
		Group:    s.group,
		Consumer: consumerName,
		MinIdle:  minIdleTime,
		Messages: staleIDs,
	}).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to claim stale messages: %w", err)
	}

	var items []*UplinkQueueItem
	var messageIDs []string
	for _, msg := range messages {
		item, err := DecodeQueueItem(msg.Values)
		if err != nil {
			logging.Warn("Failed to decode claimed message", "id", msg.ID, "error", err)
			continue
		}
		items = append(items, item)
		messageIDs = append(messageIDs, msg.ID)
	}
	return items, messageIDs, nil
}

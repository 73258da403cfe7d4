package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ctarcade/Game-Arcade/internal/game"
	"ctarcade/Game-Arcade/internal/queue"

	"github.com/go-redis/redis/v8"
)

// queueEntryTTL keeps terminal entries observable long enough for a client
// polling after a push was missed.
const queueEntryTTL = 10 * time.Minute

// QueueRepository mirrors the latest queue entry per participant and game
// kind into Redis for the query API.
type QueueRepository interface {
	SaveEntry(ctx context.Context, entry queue.Entry) error
	FindEntry(ctx context.Context, participantID string, kind game.Kind) (queue.Entry, error)
}

type redisQueueRepository struct {
	rdb *redis.Client
}

// NewQueueRepository creates a new Redis-based QueueRepository.
func NewQueueRepository(rdb *redis.Client) QueueRepository {
	return &redisQueueRepository{rdb: rdb}
}

func queueEntryKey(participantID string, kind game.Kind) string {
	return fmt.Sprintf("queue:entry:%s:%s", participantID, kind)
}

// SaveEntry stores the participant's most recent entry for its game kind.
func (r *redisQueueRepository) SaveEntry(ctx context.Context, entry queue.Entry) error {
	ctx, span := tracer.Start(ctx, "QueueRepository.SaveEntry")
	defer span.End()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal queue entry: %w", err)
	}
	return r.rdb.Set(ctx, queueEntryKey(entry.ParticipantID, entry.GameKind), data, queueEntryTTL).Err()
}

// FindEntry retrieves the participant's most recent entry for kind.
func (r *redisQueueRepository) FindEntry(ctx context.Context, participantID string, kind game.Kind) (queue.Entry, error) {
	ctx, span := tracer.Start(ctx, "QueueRepository.FindEntry")
	defer span.End()

	data, err := r.rdb.Get(ctx, queueEntryKey(participantID, kind)).Bytes()
	if errors.Is(err, redis.Nil) {
		return queue.Entry{}, ErrNotFound
	}
	if err != nil {
		return queue.Entry{}, fmt.Errorf("failed to get queue entry from redis: %w", err)
	}

	var entry queue.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return queue.Entry{}, fmt.Errorf("failed to unmarshal queue entry: %w", err)
	}
	return entry, nil
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ctarcade/Game-Arcade/internal/events"
	"ctarcade/Game-Arcade/internal/session"

	"github.com/go-redis/redis/v8"
)

const resultTTL = 24 * time.Hour

// ResultRepository records final session outcomes and fans them out on the
// global event channel.
type ResultRepository interface {
	SaveOutcome(ctx context.Context, outcome session.Outcome) error
	PublishEvent(ctx context.Context, eventType string, payload any) error
}

type redisResultRepository struct {
	rdb *redis.Client
}

// NewResultRepository creates a new Redis-based ResultRepository.
func NewResultRepository(rdb *redis.Client) ResultRepository {
	return &redisResultRepository{rdb: rdb}
}

// SaveOutcome stores the outcome under the session id and publishes a
// session_complete event.
func (r *redisResultRepository) SaveOutcome(ctx context.Context, outcome session.Outcome) error {
	ctx, span := tracer.Start(ctx, "ResultRepository.SaveOutcome")
	defer span.End()

	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}
	key := fmt.Sprintf("result:session:%s", outcome.SessionID)
	if err := r.rdb.Set(ctx, key, data, resultTTL).Err(); err != nil {
		return fmt.Errorf("failed to store outcome in redis: %w", err)
	}

	return r.PublishEvent(ctx, events.TypeSessionComplete, events.SessionCompletePayload{
		SessionID: outcome.SessionID,
		RoomID:    outcome.RoomID,
		GameKind:  string(outcome.GameKind),
		WinnerID:  outcome.WinnerID,
		Draw:      outcome.Draw,
		Abandoned: outcome.Abandoned,
	})
}

// PublishEvent wraps payload into an Event and publishes it on the global
// channel.
func (r *redisResultRepository) PublishEvent(ctx context.Context, eventType string, payload any) error {
	ctx, span := tracer.Start(ctx, "ResultRepository.PublishEvent")
	defer span.End()

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	event, err := json.Marshal(events.Event{Type: eventType, Payload: raw})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return r.rdb.Publish(ctx, events.EventsChannel, event).Err()
}

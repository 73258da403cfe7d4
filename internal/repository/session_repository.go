package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ctarcade/Game-Arcade/internal/session"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("repository")

var ErrNotFound = errors.New("not found")

// sessionTTL keeps finished snapshots queryable for a while without
// letting dead sessions pile up.
const sessionTTL = 24 * time.Hour

// SessionRepository mirrors session snapshots into Redis so the query API
// serves the same state the websocket pushed.
type SessionRepository interface {
	SaveSnapshot(ctx context.Context, snap session.Snapshot) error
	FindSnapshot(ctx context.Context, sessionID string) (session.Snapshot, error)
	Delete(ctx context.Context, sessionID string) error
}

type redisSessionRepository struct {
	rdb *redis.Client
}

// NewSessionRepository creates a new Redis-based SessionRepository.
func NewSessionRepository(rdb *redis.Client) SessionRepository {
	return &redisSessionRepository{rdb: rdb}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// SaveSnapshot stores the latest snapshot of a session.
func (r *redisSessionRepository) SaveSnapshot(ctx context.Context, snap session.Snapshot) error {
	ctx, span := tracer.Start(ctx, "SessionRepository.SaveSnapshot")
	defer span.End()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}
	return r.rdb.Set(ctx, sessionKey(snap.SessionID), data, sessionTTL).Err()
}

// FindSnapshot retrieves the latest stored snapshot of a session.
func (r *redisSessionRepository) FindSnapshot(ctx context.Context, sessionID string) (session.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "SessionRepository.FindSnapshot")
	defer span.End()

	data, err := r.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return session.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("failed to get session snapshot from redis: %w", err)
	}

	var snap session.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return session.Snapshot{}, fmt.Errorf("failed to unmarshal session snapshot: %w", err)
	}
	return snap, nil
}

// Delete removes a session snapshot.
func (r *redisSessionRepository) Delete(ctx context.Context, sessionID string) error {
	ctx, span := tracer.Start(ctx, "SessionRepository.Delete")
	defer span.End()

	return r.rdb.Del(ctx, sessionKey(sessionID)).Err()
}

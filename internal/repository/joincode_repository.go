package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const joinCodeTTL = 12 * time.Hour

// JoinCodeRepository mirrors private-room join codes into Redis so codes
// stay resolvable if the serving instance restarts.
type JoinCodeRepository interface {
	Bind(ctx context.Context, code, roomID string) error
	Resolve(ctx context.Context, code string) (string, error)
	Release(ctx context.Context, code string) error
}

type redisJoinCodeRepository struct {
	rdb *redis.Client
}

// NewJoinCodeRepository creates a new Redis-based JoinCodeRepository.
func NewJoinCodeRepository(rdb *redis.Client) JoinCodeRepository {
	return &redisJoinCodeRepository{rdb: rdb}
}

func joinCodeKey(code string) string {
	return fmt.Sprintf("joincode:%s", code)
}

// Bind associates a join code with a room id.
func (r *redisJoinCodeRepository) Bind(ctx context.Context, code, roomID string) error {
	ctx, span := tracer.Start(ctx, "JoinCodeRepository.Bind")
	defer span.End()

	return r.rdb.Set(ctx, joinCodeKey(code), roomID, joinCodeTTL).Err()
}

// Resolve returns the room id a join code points at.
func (r *redisJoinCodeRepository) Resolve(ctx context.Context, code string) (string, error) {
	ctx, span := tracer.Start(ctx, "JoinCodeRepository.Resolve")
	defer span.End()

	roomID, err := r.rdb.Get(ctx, joinCodeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve join code: %w", err)
	}
	return roomID, nil
}

// Release frees a join code once its room closes.
func (r *redisJoinCodeRepository) Release(ctx context.Context, code string) error {
	ctx, span := tracer.Start(ctx, "JoinCodeRepository.Release")
	defer span.End()

	return r.rdb.Del(ctx, joinCodeKey(code)).Err()
}

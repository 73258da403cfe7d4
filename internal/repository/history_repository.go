package repository

import (
	"context"
	"fmt"
	"time"

	"ctarcade/Game-Arcade/internal/session"

	"github.com/jmoiron/sqlx"
)

// MatchRecord is one row of durable match history.
type MatchRecord struct {
	ID           int64     `db:"id" json:"id"`
	SessionID    string    `db:"session_id" json:"session_id"`
	GameKind     string    `db:"game_kind" json:"game_kind"`
	Player1ID    string    `db:"player1_id" json:"player1_id"`
	Player2ID    string    `db:"player2_id" json:"player2_id"`
	WinnerID     *string   `db:"winner_id" json:"winner_id,omitempty"`
	Draw         bool      `db:"draw" json:"draw"`
	Abandoned    bool      `db:"abandoned" json:"abandoned"`
	TournamentID *string   `db:"tournament_id" json:"tournament_id,omitempty"`
	FinishedAt   time.Time `db:"finished_at" json:"finished_at"`
}

// HistoryRepository persists final outcomes to SQLite.
type HistoryRepository interface {
	Record(ctx context.Context, outcome session.Outcome) error
	ForPlayer(ctx context.Context, playerID string, limit int) ([]MatchRecord, error)
}

type sqlHistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository creates a new SQLite-backed HistoryRepository.
func NewHistoryRepository(db *sqlx.DB) HistoryRepository {
	return &sqlHistoryRepository{db: db}
}

// Record inserts one finished match.
func (r *sqlHistoryRepository) Record(ctx context.Context, outcome session.Outcome) error {
	ctx, span := tracer.Start(ctx, "HistoryRepository.Record")
	defer span.End()

	var winner, tournament *string
	if outcome.WinnerID != "" {
		winner = &outcome.WinnerID
	}
	if outcome.TournamentID != "" {
		tournament = &outcome.TournamentID
	}

	query := `INSERT INTO match_history
		(session_id, game_kind, player1_id, player2_id, winner_id, draw, abandoned, tournament_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		outcome.SessionID, string(outcome.GameKind),
		outcome.PlayerIDs[0], outcome.PlayerIDs[1],
		winner, outcome.Draw, outcome.Abandoned, tournament,
	)
	if err != nil {
		return fmt.Errorf("failed to insert match history: %w", err)
	}
	return nil
}

// ForPlayer lists a player's most recent matches, newest first.
func (r *sqlHistoryRepository) ForPlayer(ctx context.Context, playerID string, limit int) ([]MatchRecord, error) {
	ctx, span := tracer.Start(ctx, "HistoryRepository.ForPlayer")
	defer span.End()

	if limit <= 0 {
		limit = 20
	}
	var records []MatchRecord
	query := `SELECT * FROM match_history
		WHERE player1_id = ? OR player2_id = ?
		ORDER BY finished_at DESC, id DESC LIMIT ?`
	if err := r.db.SelectContext(ctx, &records, query, playerID, playerID, limit); err != nil {
		return nil, fmt.Errorf("failed to query match history: %w", err)
	}
	return records, nil
}

package db

import (
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
)

var (
	once   sync.Once
	dbConn *sqlx.DB
	dbErr  error
)

// Connect opens (once) the SQLite connection pool backing accounts and
// match history.
func Connect(dbPath string) (*sqlx.DB, error) {
	once.Do(func() {
		pool, err := sqlx.Open("sqlite", dbPath)
		if err != nil {
			dbErr = fmt.Errorf("failed to open database connection: %w", err)
			return
		}
		dbConn = pool
	})
	return dbConn, dbErr
}

// InitializeDB connects and verifies the schema.
func InitializeDB(dbPath string) (*sqlx.DB, error) {
	conn, err := Connect(dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	userSchema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		rating INTEGER NOT NULL DEFAULT 1200
	);`
	if _, err := conn.Exec(userSchema); err != nil {
		return nil, fmt.Errorf("failed to create users table: %w", err)
	}

	historySchema := `
	CREATE TABLE IF NOT EXISTS match_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		game_kind TEXT NOT NULL,
		player1_id TEXT NOT NULL,
		player2_id TEXT NOT NULL,
		winner_id TEXT,
		draw INTEGER NOT NULL DEFAULT 0,
		abandoned INTEGER NOT NULL DEFAULT 0,
		tournament_id TEXT,
		finished_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := conn.Exec(historySchema); err != nil {
		return nil, fmt.Errorf("failed to create match_history table: %w", err)
	}

	slog.Info("DB connection initialized and schema verified", "path", dbPath)
	return conn, nil
}

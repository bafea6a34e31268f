/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package prefs remembers each player's theme, temperature unit, and
// whether they've already seen the welcome dialog.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

type Preferences struct {
	Theme     string    `json:"theme"`
	Metric    bool      `json:"metric"`
	Visited   bool      `json:"visited"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Defaults are what a first-time player gets.
func Defaults() Preferences {
	return Preferences{Theme: ThemeLight}
}

// ToggleTheme switches between the light and dark themes.
func (p Preferences) ToggleTheme() Preferences {
	if p.Theme == ThemeDark {
		p.Theme = ThemeLight
	} else {
		p.Theme = ThemeDark
	}

	return p
}

type Store interface {
	Load(ctx context.Context, playerID string) (Preferences, error)
	Save(ctx context.Context, playerID string, p Preferences) error
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// SQLiteStore implements Store on a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens, and if needed creates, the database at path. Use ":memory:"
// for a throwaway store.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Writes are tiny and rare; one connection also keeps ":memory:"
	// databases from splitting across the pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS preferences (
		player_id TEXT PRIMARY KEY,
		theme TEXT NOT NULL DEFAULT 'light',
		metric INTEGER NOT NULL DEFAULT 0,
		visited INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_preferences_updated_at ON preferences(updated_at);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// Load returns the stored preferences, or Defaults for an unknown player.
func (s *SQLiteStore) Load(ctx context.Context, playerID string) (Preferences, error) {
	var (
		p       Preferences
		updated int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT theme, metric, visited, updated_at FROM preferences WHERE player_id = ?`,
		playerID,
	).Scan(&p.Theme, &p.Metric, &p.Visited, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Defaults(), nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("failed to load preferences: %w", err)
	}

	p.UpdatedAt = time.Unix(updated, 0).UTC()

	return p, nil
}

func (s *SQLiteStore) Save(ctx context.Context, playerID string, p Preferences) error {
	if p.Theme != ThemeDark {
		p.Theme = ThemeLight
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (player_id, theme, metric, visited, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET
			theme = excluded.theme,
			metric = excluded.metric,
			visited = excluded.visited,
			updated_at = excluded.updated_at`,
		playerID, p.Theme, p.Metric, p.Visited, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}

	return nil
}

// Prune deletes preferences last written before the given time and reports
// how many were removed.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE updated_at < ?`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune preferences: %w", err)
	}

	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

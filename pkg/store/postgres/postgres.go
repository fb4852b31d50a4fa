// Package postgres is the durable-persistence implementation of
// pkg/store.Store, backed by pgxpool. It is optional: the server only
// constructs one when a database URI is configured.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glasscore/glasscore/pkg/store"
)

// Store is a pgxpool-backed implementation of store.Store.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and verifies connectivity with a ping. Callers
// should run Migrate(dsn) once, separately, before serving traffic.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// AppendTurn inserts one durable chat turn.
func (s *Store) AppendTurn(ctx context.Context, turn store.ChatTurn) error {
	date, err := time.Parse("2006-01-02", turn.Date)
	if err != nil {
		return fmt.Errorf("postgres: invalid turn date %q: %w", turn.Date, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO chat_turns (user_id, turn_date, query, response, had_photo, photo_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, turn.UserID, date, turn.Query, turn.Response, turn.HadPhoto, turn.PhotoRef, turn.Timestamp)
	if err != nil {
		return fmt.Errorf("postgres: append turn: %w", err)
	}
	return nil
}

// GetSettings loads one user's durable preferences. Returns store.ErrNotFound
// if no row exists yet.
func (s *Store) GetSettings(ctx context.Context, userID string) (store.Settings, error) {
	var out store.Settings
	out.UserID = userID
	row := s.pool.QueryRow(ctx, `
		SELECT theme, chat_history_enabled FROM user_settings WHERE user_id = $1
	`, userID)
	if err := row.Scan(&out.Theme, &out.ChatHistoryEnabled); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Settings{}, store.ErrNotFound
		}
		return store.Settings{}, fmt.Errorf("postgres: get settings: %w", err)
	}
	return out, nil
}

// PutSettings upserts one user's durable preferences.
func (s *Store) PutSettings(ctx context.Context, settings store.Settings) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_settings (user_id, theme, chat_history_enabled, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id) DO UPDATE SET
			theme = EXCLUDED.theme,
			chat_history_enabled = EXCLUDED.chat_history_enabled,
			updated_at = now()
	`, settings.UserID, settings.Theme, settings.ChatHistoryEnabled)
	if err != nil {
		return fmt.Errorf("postgres: put settings: %w", err)
	}
	return nil
}

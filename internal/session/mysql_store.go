package session

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"merchant-console/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"
)

// MySQLStore keeps sessions in the console_sessions table. Rows are keyed by
// the BLAKE2b-256 of the session id, never the id itself.
type MySQLStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMySQLStore(db *sql.DB, logger zerolog.Logger) *MySQLStore {
	return &MySQLStore{
		db:     db,
		logger: logger,
	}
}

func hashID(id string) string {
	sum := blake2b.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

func (s *MySQLStore) Save(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO console_sessions (id_hash, token, role, created_at, last_seen_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE token = VALUES(token), role = VALUES(role), last_seen_at = VALUES(last_seen_at)`,
		hashID(rec.ID), rec.Identity.Token, string(rec.Identity.Role), rec.CreatedAt.UTC(), rec.LastSeen.UTC(),
	)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error saving session")
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *MySQLStore) Get(ctx context.Context, id string) (Record, error) {
	var (
		token, role         string
		createdAt, lastSeen time.Time
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT token, role, created_at, last_seen_at FROM console_sessions WHERE id_hash = ?",
		hashID(id),
	).Scan(&token, &role, &createdAt, &lastSeen)

	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Error fetching session")
		return Record{}, fmt.Errorf("database error: %w", err)
	}

	return Record{
		ID:        id,
		Identity:  Identity{Token: token, Role: models.UserRole(role)},
		CreatedAt: createdAt,
		LastSeen:  lastSeen,
	}, nil
}

func (s *MySQLStore) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE console_sessions SET last_seen_at = ? WHERE id_hash = ?",
		at.UTC(), hashID(id),
	)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error touching session")
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

func (s *MySQLStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM console_sessions WHERE id_hash = ?", hashID(id))
	if err != nil {
		s.logger.Error().Err(err).Msg("Error deleting session")
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeIdle removes every session not seen since cutoff and returns how many
// rows went away.
func (s *MySQLStore) PurgeIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM console_sessions WHERE last_seen_at < ?", cutoff.UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("Error purging idle sessions")
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged sessions: %w", err)
	}
	return n, nil
}

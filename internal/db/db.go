package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
)

// DSN normalizes a MySQL DSN so DATETIME columns scan into time.Time in UTC.
func DSN(dbURL string) (string, error) {
	cfg, err := mysql.ParseDSN(dbURL)
	if err != nil {
		return "", fmt.Errorf("invalid DB_URL: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

func InitDB(ctx context.Context, dbURL string, logger zerolog.Logger) (*sql.DB, error) {
	dsn, err := DSN(dbURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database not responding: %w", err)
	}

	logger.Info().Msg("Connected to session database")
	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS console_sessions (
		id_hash CHAR(64) PRIMARY KEY,
		token TEXT NOT NULL,
		role VARCHAR(32) NOT NULL,
		created_at DATETIME NOT NULL,
		last_seen_at DATETIME NOT NULL,
		INDEX idx_last_seen_at (last_seen_at)
	);`,
}

func RunMigrations(ctx context.Context, db *sql.DB, logger zerolog.Logger) error {
	for _, q := range migrations {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	logger.Info().Int("count", len(migrations)).Msg("Migrations applied")
	return nil
}

// Package journal persists a history of applied wallpapers in an
// embedded SQLite database. The journal is append-only: the rotation
// engine writes one row per applied wallpaper, and the history command
// reads the most recent rows back.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// Entry is one applied wallpaper.
type Entry struct {
	ID        int64
	PassID    string
	DisplayID int
	Theme     string
	Filename  string
	LocalPath string
	AppliedAt time.Time
}

// Store is the SQLite-backed rotation journal. Use ":memory:" as the
// path for tests.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	nowFunc func() time.Time
}

// Open opens (or creates) the journal database at dbPath and applies
// pending schema migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("journal: opening database %s: %w", dbPath, err)
	}

	// modernc.org/sqlite serializes access per connection; a single
	// connection avoids SQLITE_BUSY between the engine and the CLI.
	db.SetMaxOpenConns(1)

	ctx := context.Background()

	if err := setPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("rotation journal ready", slog.String("path", dbPath))

	return &Store{db: db, logger: logger, nowFunc: time.Now}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append records one applied wallpaper. AppliedAt defaults to the
// current time when zero.
func (s *Store) Append(ctx context.Context, e Entry) error {
	appliedAt := e.AppliedAt
	if appliedAt.IsZero() {
		appliedAt = s.nowFunc()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rotations (pass_id, display_id, theme, filename, local_path, applied_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.PassID, e.DisplayID, e.Theme, e.Filename, e.LocalPath,
		appliedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("journal: appending entry: %w", err)
	}

	return nil
}

// Recent returns the n most recently applied wallpapers, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, pass_id, display_id, theme, filename, local_path, applied_at
		 FROM rotations ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("journal: querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			e         Entry
			appliedAt string
		)

		if err := rows.Scan(&e.ID, &e.PassID, &e.DisplayID, &e.Theme, &e.Filename, &e.LocalPath, &appliedAt); err != nil {
			return nil, fmt.Errorf("journal: scanning history row: %w", err)
		}

		e.AppliedAt, err = time.Parse(time.RFC3339Nano, appliedAt)
		if err != nil {
			return nil, fmt.Errorf("journal: parsing applied_at %q: %w", appliedAt, err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterating history rows: %w", err)
	}

	return entries, nil
}

func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("journal: setting %s: %w", pragma, err)
		}
	}

	return nil
}

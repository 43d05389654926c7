// Package logstore persists classified build-tool log lines in SQLite so
// build logs remain queryable across restarts.
package logstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Level classifies one subprocess output line.
type Level string

const (
	LevelProgress Level = "progress"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
)

// Line is one stored log line.
type Line struct {
	ID        int64
	BuildID   string
	Level     Level
	Text      string
	Timestamp time.Time
}

// Store is a SQLite-backed build log store.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates or opens the log database. Use ":memory:" in tests.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open log database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize log schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS build_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		level TEXT NOT NULL,
		line TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_build_logs_build_id ON build_logs(build_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append stores one line for a build.
func (s *Store) Append(ctx context.Context, buildID string, level Level, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO build_logs (build_id, level, line, timestamp) VALUES (?, ?, ?, ?)",
		buildID, string(level), text, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert log line: %w", err)
	}
	return nil
}

// Lines returns all lines for a build in insertion order.
func (s *Store) Lines(ctx context.Context, buildID string) ([]Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, build_id, level, line, timestamp FROM build_logs WHERE build_id = ? ORDER BY id",
		buildID,
	)
	if err != nil {
		return nil, fmt.Errorf("query log lines: %w", err)
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		var level string
		var ts int64
		if err := rows.Scan(&l.ID, &l.BuildID, &level, &l.Text, &ts); err != nil {
			return nil, fmt.Errorf("scan log line: %w", err)
		}
		l.Level = Level(level)
		l.Timestamp = time.Unix(0, ts)
		out = append(out, l)
	}
	return out, rows.Err()
}

// Texts returns the raw line texts for a build, for the CLI logs surface.
func (s *Store) Texts(ctx context.Context, buildID string) ([]string, error) {
	lines, err := s.Lines(ctx, buildID)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out, nil
}

// Prune deletes logs for builds other than the given ids.
func (s *Store) Prune(ctx context.Context, keepBuildIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(keepBuildIDs) == 0 {
		_, err := s.db.ExecContext(ctx, "DELETE FROM build_logs")
		return err
	}
	query := "DELETE FROM build_logs WHERE build_id NOT IN (?" +
		strings.Repeat(",?", len(keepBuildIDs)-1) + ")"
	args := make([]any, len(keepBuildIDs))
	for i, id := range keepBuildIDs {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

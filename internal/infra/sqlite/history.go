// Package sqlite keeps a local history of finished attempts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.

	"github.com/waready/cepreuna-quiz/internal/domain"
)

// HistoryEntry is one stored attempt.
type HistoryEntry struct {
	ID     int64
	Result domain.Result
}

// HistoryStore persists results in SQLite. It satisfies app.ResultSink.
type HistoryStore struct {
	db *sql.DB
}

// OpenHistory opens or creates the database at path and applies migrations.
func OpenHistory(path string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &HistoryStore{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *HistoryStore) Close() error {
	return s.db.Close()
}

func (s *HistoryStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY,
			quiz_id TEXT NOT NULL,
			subject_area TEXT NOT NULL,
			raw_score INTEGER NOT NULL,
			weighted_score REAL NOT NULL,
			percentage INTEGER NOT NULL,
			time_used_seconds INTEGER NOT NULL,
			trigger TEXT NOT NULL,
			by_subject TEXT NOT NULL,
			completed_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_results_completed_at ON results(completed_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *HistoryStore) SaveResult(ctx context.Context, quizID string, result domain.Result) error {
	bySubject, err := json.Marshal(result.BySubject)
	if err != nil {
		return fmt.Errorf("encode subjects: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (quiz_id, subject_area, raw_score, weighted_score, percentage, time_used_seconds, trigger, by_subject, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		quizID,
		result.SubjectArea,
		result.RawScore,
		result.WeightedScore,
		result.Percentage,
		result.TimeUsedSeconds(),
		string(result.Trigger),
		string(bySubject),
		result.CompletedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first. A non-positive limit returns all.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, quiz_id, subject_area, raw_score, weighted_score, percentage, time_used_seconds, trigger, by_subject, completed_at
		 FROM results ORDER BY completed_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			e         HistoryEntry
			seconds   int
			trigger   string
			bySubject string
			completed string
		)
		if err := rows.Scan(&e.ID, &e.Result.QuizID, &e.Result.SubjectArea, &e.Result.RawScore, &e.Result.WeightedScore,
			&e.Result.Percentage, &seconds, &trigger, &bySubject, &completed); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(bySubject), &e.Result.BySubject); err != nil {
			return nil, fmt.Errorf("decode subjects of %d: %w", e.ID, err)
		}
		if e.Result.CompletedAt, err = time.Parse(time.RFC3339Nano, completed); err != nil {
			return nil, fmt.Errorf("parse completed_at of %d: %w", e.ID, err)
		}
		e.Result.TimeUsed = time.Duration(seconds) * time.Second
		e.Result.Trigger = domain.Trigger(trigger)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

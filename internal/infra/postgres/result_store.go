package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/waready/cepreuna-quiz/internal/domain"
)

// ResultStore archives completed results in the quiz_results table.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) SaveResult(ctx context.Context, quizID string, result domain.Result) error {
	bySubject, err := json.Marshal(result.BySubject)
	if err != nil {
		return fmt.Errorf("marshal subjects: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quiz_results
		   (quiz_id, subject_area, raw_score, weighted_score, percentage, time_used_seconds, trigger, results_by_subject, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		quizID, result.SubjectArea, result.RawScore, result.WeightedScore, result.Percentage,
		result.TimeUsedSeconds(), string(result.Trigger), bySubject, result.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// Recent returns the latest results of a quiz, newest first.
func (s *ResultStore) Recent(ctx context.Context, quizID string, limit int) ([]domain.Result, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT subject_area, raw_score, weighted_score, percentage, time_used_seconds, trigger, results_by_subject, completed_at
		 FROM quiz_results WHERE quiz_id=$1 ORDER BY completed_at DESC, id DESC LIMIT $2`,
		quizID, limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []domain.Result
	for rows.Next() {
		var (
			r        domain.Result
			seconds  int
			trigger  string
			subjects []byte
		)
		if err := rows.Scan(&r.SubjectArea, &r.RawScore, &r.WeightedScore, &r.Percentage, &seconds, &trigger, &subjects, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal(subjects, &r.BySubject); err != nil {
			return nil, fmt.Errorf("unmarshal subjects: %w", err)
		}
		r.QuizID = quizID
		r.Trigger = domain.Trigger(trigger)
		r.TimeUsed = time.Duration(seconds) * time.Second
		out = append(out, r)
	}
	return out, rows.Err()
}

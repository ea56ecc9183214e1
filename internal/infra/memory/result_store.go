package memory

import (
	"context"
	"sync"

	"github.com/waready/cepreuna-quiz/internal/domain"
)

// ResultStore keeps submitted results in memory. It satisfies app.ResultSink.
type ResultStore struct {
	mu      sync.Mutex
	results []domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) SaveResult(_ context.Context, quizID string, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result.QuizID = quizID
	s.results = append(s.results, result)
	return nil
}

// Results returns a copy of the stored results in submission order.
func (s *ResultStore) Results() []domain.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Result, len(s.results))
	copy(out, s.results)
	return out
}

package memory

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/waready/cepreuna-quiz/internal/app"
	"github.com/waready/cepreuna-quiz/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	session := app.NewSession(context.Background(), "quiz-1", app.SessionConfig{}, nil, zerolog.Nop())

	store.Put(session)
	got, ok := store.Get(session.ID())
	if !ok || got != session {
		t.Fatalf("expected session present")
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", store.Len())
	}

	store.Delete(session.ID())
	if _, ok := store.Get(session.ID()); ok {
		t.Fatalf("expected session removed")
	}
	store.Delete(session.ID())
}

func TestResultStoreKeepsOrder(t *testing.T) {
	store := NewResultStore()
	ctx := context.Background()
	_ = store.SaveResult(ctx, "a", sampleResult(10))
	_ = store.SaveResult(ctx, "b", sampleResult(20))

	got := store.Results()
	if len(got) != 2 || got[0].QuizID != "a" || got[1].RawScore != 20 {
		t.Fatalf("unexpected results %+v", got)
	}
}

func sampleResult(raw int) domain.Result {
	return domain.Result{RawScore: raw, WeightedScore: float64(raw)}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/waready/cepreuna-quiz/internal/domain"
)

func TestLoadFailureEntersErrorState(t *testing.T) {
	s := newTestSession(staticRepo{err: domain.ErrQuizNotFound}, nil)

	err := s.Load(context.Background(), staticRepo{err: domain.ErrQuizNotFound})
	if !errors.Is(err, domain.ErrFetch) || !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected fetch error wrapping not found, got %v", err)
	}
	if s.State() != domain.StateError {
		t.Fatalf("expected error state, got %s", s.State())
	}
	if _, _, err := s.Finish(); !errors.Is(err, domain.ErrSessionNotActive) {
		t.Fatalf("finish in error state: expected not active, got %v", err)
	}
	if err := s.Select("m1", 0); !errors.Is(err, domain.ErrSessionNotActive) {
		t.Fatalf("select in error state: expected not active, got %v", err)
	}
	if snap := s.Snapshot(); snap.Error == "" || snap.Current != nil {
		t.Fatalf("unexpected error snapshot %+v", snap)
	}
}

func TestLoadRejectsEmptyQuiz(t *testing.T) {
	repo := staticRepo{quiz: domain.Quiz{Metadata: domain.QuizMetadata{ID: "1"}}}
	s := newTestSession(repo, nil)

	if err := s.Load(context.Background(), repo); !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected no questions error, got %v", err)
	}
	if err := s.Load(context.Background(), repo); !errors.Is(err, domain.ErrSessionNotActive) {
		t.Fatalf("second load must be rejected, got %v", err)
	}
}

func TestNavigationAndNextFinishesOnLastQuestion(t *testing.T) {
	sink := &recordingSink{}
	s := loadedSession(t, sampleQuiz(), sink)

	if err := s.Previous(); err != nil {
		t.Fatalf("previous: %v", err)
	}
	if s.Snapshot().Cursor != 0 {
		t.Fatalf("previous on first question must stay at 0")
	}
	if err := s.SelectCurrent(2); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := s.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	snap := s.Snapshot()
	if snap.Cursor != 1 || snap.Current.ID != "h1" || snap.Answered != 1 {
		t.Fatalf("unexpected snapshot after next %+v", snap)
	}
	if err := s.Previous(); err != nil || s.Snapshot().Current.Selected != 2 {
		t.Fatalf("previous should show stored answer, err=%v snap=%+v", err, s.Snapshot().Current)
	}
	_ = s.Next()

	if err := s.Next(); err != nil {
		t.Fatalf("next on last: %v", err)
	}
	<-s.Submitted()
	result, ok := s.Result()
	if !ok || result.Trigger != domain.TriggerManual {
		t.Fatalf("expected manual completion, got %+v ok=%v", result, ok)
	}
	// Math correct (10 * 2.0), History blank (2 * 1.0).
	if result.RawScore != 12 || result.WeightedScore != 22 {
		t.Fatalf("unexpected scores raw=%d weighted=%v", result.RawScore, result.WeightedScore)
	}
	if sink.count() != 1 {
		t.Fatalf("expected 1 submission, got %d", sink.count())
	}
}

func TestFinishIsIdempotent(t *testing.T) {
	sink := &recordingSink{}
	s := loadedSession(t, sampleQuiz(), sink)

	first, completed, err := s.Finish()
	if err != nil || !completed {
		t.Fatalf("first finish: completed=%v err=%v", completed, err)
	}
	second, completed, err := s.Finish()
	if err != nil || completed {
		t.Fatalf("second finish must be a silent no-op: completed=%v err=%v", completed, err)
	}
	if first.CompletedAt != second.CompletedAt || first.RawScore != second.RawScore {
		t.Fatalf("duplicate finish returned a different result")
	}
	s.countdown.Tick()
	_ = s.Next()

	<-s.Submitted()
	if sink.count() != 1 {
		t.Fatalf("expected exactly one submission, got %d", sink.count())
	}
}

func TestFinishRacingExpiryScoresOnce(t *testing.T) {
	for i := 0; i < 50; i++ {
		sink := &recordingSink{}
		quiz := sampleQuiz()
		quiz.Metadata.TimeLimit = 0
		s := NewSessionWithClock(context.Background(), fmt.Sprintf("s-%d", i), "7",
			SessionConfig{Duration: time.Second, TickInterval: time.Hour},
			NewSubmitter(zerolog.Nop(), []ResultSink{sink}), zerolog.Nop(), time.Now)
		if err := s.Load(context.Background(), staticRepo{quiz: quiz}); err != nil {
			t.Fatalf("load: %v", err)
		}

		var wg sync.WaitGroup
		start := make(chan struct{})
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			_, _, _ = s.Finish()
		}()
		go func() {
			defer wg.Done()
			<-start
			s.countdown.Tick()
		}()
		close(start)
		wg.Wait()

		select {
		case <-s.Submitted():
		case <-time.After(2 * time.Second):
			t.Fatalf("submission never finished")
		}
		if sink.count() != 1 {
			t.Fatalf("iteration %d: expected one submission, got %d", i, sink.count())
		}
	}
}

func TestTimeoutScoresUnansweredAsBlank(t *testing.T) {
	questions := make([]domain.Question, 0, 5)
	for i := 0; i < 5; i++ {
		questions = append(questions, domain.Question{ID: fmt.Sprintf("q%d", i), Subject: "Math", Options: []string{"a", "b"}, CorrectOptionIndex: 1})
	}
	quiz := domain.Quiz{Metadata: domain.QuizMetadata{ID: "9", Weighting: map[string]float64{"Math": 1}}, Questions: questions}
	sink := &recordingSink{}
	s := NewSessionWithClock(context.Background(), "s-timeout", "9",
		SessionConfig{Duration: 4 * time.Second, TickInterval: time.Hour},
		NewSubmitter(zerolog.Nop(), []ResultSink{sink}), zerolog.Nop(), time.Now)
	if err := s.Load(context.Background(), staticRepo{quiz: quiz}); err != nil {
		t.Fatalf("load: %v", err)
	}
	for i := 0; i < 3; i++ {
		_ = s.Select(fmt.Sprintf("q%d", i), 1)
	}

	for i := 0; i < 4; i++ {
		s.countdown.Tick()
	}
	<-s.Submitted()

	result, ok := s.Result()
	if !ok || result.Trigger != domain.TriggerTimeout {
		t.Fatalf("expected timeout completion, got %+v", result)
	}
	if result.TimeUsed != 4*time.Second {
		t.Fatalf("expected full duration used, got %v", result.TimeUsed)
	}
	if result.RawScore != 34 {
		t.Fatalf("expected 3*10 + 2*2 = 34, got %d", result.RawScore)
	}
	if sink.count() != 1 {
		t.Fatalf("expected 1 submission, got %d", sink.count())
	}
	if err := s.Select("q4", 1); !errors.Is(err, domain.ErrSessionNotActive) {
		t.Fatalf("answers must be frozen after completion, got %v", err)
	}
}

func TestSubmissionFailureKeepsResult(t *testing.T) {
	sink := &recordingSink{err: errors.New("portal down")}
	s := loadedSession(t, sampleQuiz(), sink)
	_ = s.SelectCurrent(2)

	result, _, _ := s.Finish()
	<-s.Submitted()

	stored, ok := s.Result()
	if !ok || stored.RawScore != result.RawScore || stored.WeightedScore != result.WeightedScore {
		t.Fatalf("result changed after failed submission: %+v vs %+v", stored, result)
	}
	snap := s.Snapshot()
	if snap.State != domain.StateCompleted || snap.Submission != domain.SubmissionFailed || snap.Result == nil {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestDeniedSessionIsSubmissionFailure(t *testing.T) {
	sink := &recordingSink{}
	submitter := NewSubmitter(zerolog.Nop(), []ResultSink{sink}, WithAuthority(authorityFunc(func(context.Context) error {
		return domain.ErrSessionDenied
	})))
	s := NewSessionWithClock(context.Background(), "s-denied", "7", SessionConfig{TickInterval: time.Hour}, submitter, zerolog.Nop(), time.Now)
	if err := s.Load(context.Background(), staticRepo{quiz: sampleQuiz()}); err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, completed, err := s.Finish(); err != nil || !completed {
		t.Fatalf("finish: completed=%v err=%v", completed, err)
	}
	<-s.Submitted()
	if sink.count() != 0 {
		t.Fatalf("sink must not be written for a denied session")
	}
	if s.Snapshot().Submission != domain.SubmissionFailed {
		t.Fatalf("expected failed submission status")
	}
	if _, ok := s.Result(); !ok {
		t.Fatalf("result must stay available locally")
	}
}

func TestCloseIgnoresLateSubmission(t *testing.T) {
	release := make(chan struct{})
	sink := &recordingSink{block: release}
	s := loadedSession(t, sampleQuiz(), sink)

	_, _, _ = s.Finish()
	s.Close()
	close(release)
	<-s.Submitted()

	if sink.count() != 1 {
		t.Fatalf("submission should still be delivered, got %d", sink.count())
	}
	if s.Snapshot().Submission != domain.SubmissionPending {
		t.Fatalf("closed session must not record submission outcome, got %q", s.Snapshot().Submission)
	}
	if _, _, err := s.Finish(); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestCloseStopsCountdown(t *testing.T) {
	s := loadedSession(t, sampleQuiz(), &recordingSink{})
	before := s.Snapshot().RemainingSeconds
	s.Close()

	s.countdown.Tick()
	if s.Snapshot().RemainingSeconds != before {
		t.Fatalf("countdown ticked after teardown")
	}
	if s.State() != domain.StateInProgress {
		t.Fatalf("teardown must not complete the session, got %s", s.State())
	}
}

func TestCloseDuringLoad(t *testing.T) {
	started := make(chan struct{})
	repo := blockingRepo{started: started}
	s := newTestSession(repo, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Load(context.Background(), repo) }()
	<-started
	s.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, domain.ErrSessionClosed) {
			t.Fatalf("expected closed error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("load did not observe teardown")
	}
	if s.State() != domain.StateLoading {
		t.Fatalf("disposed session state must not change, got %s", s.State())
	}
}

func TestQuizTimeLimitOverridesDuration(t *testing.T) {
	quiz := sampleQuiz()
	quiz.Metadata.TimeLimit = 90
	s := loadedSession(t, quiz, nil)

	if got := s.Snapshot().RemainingSeconds; got != 90*60 {
		t.Fatalf("expected 5400 seconds, got %d", got)
	}
	s.countdown.Tick()
	result, _, _ := s.Finish()
	if result.TimeUsed != time.Second {
		t.Fatalf("expected 1s used, got %v", result.TimeUsed)
	}
	<-s.Submitted()
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	s := loadedSession(t, sampleQuiz(), nil)
	ch, cancel := s.Subscribe()
	defer cancel()

	initial := <-ch
	if initial.State != domain.StateInProgress || initial.Current == nil || initial.Current.ID != "m1" {
		t.Fatalf("unexpected initial snapshot %+v", initial)
	}
	_ = s.SelectCurrent(1)
	update := <-ch
	if update.Current.Selected != 1 || update.Answered != 1 {
		t.Fatalf("expected selection update, got %+v", update.Current)
	}

	s.Close()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed on teardown")
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		Metadata: domain.QuizMetadata{
			ID:          "7",
			SubjectArea: "Ingenierías",
			Weighting:   map[string]float64{"Math": 2.0, "History": 1.0},
		},
		Questions: sampleQuestions(),
	}
}

func newTestSession(repo QuizRepository, sink ResultSink) *Session {
	var submitter *Submitter
	if sink != nil {
		submitter = NewSubmitter(zerolog.Nop(), []ResultSink{sink})
	}
	return NewSessionWithClock(context.Background(), "s-1", "7",
		SessionConfig{Duration: 100 * time.Second, TickInterval: time.Hour},
		submitter, zerolog.Nop(), time.Now)
}

func loadedSession(t *testing.T, quiz domain.Quiz, sink ResultSink) *Session {
	t.Helper()
	repo := staticRepo{quiz: quiz}
	s := newTestSession(repo, sink)
	if err := s.Load(context.Background(), repo); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

type staticRepo struct {
	quiz domain.Quiz
	err  error
}

func (r staticRepo) GetQuiz(context.Context, string) (domain.Quiz, error) {
	return r.quiz, r.err
}

type blockingRepo struct {
	started chan struct{}
}

func (r blockingRepo) GetQuiz(ctx context.Context, _ string) (domain.Quiz, error) {
	close(r.started)
	<-ctx.Done()
	return domain.Quiz{}, ctx.Err()
}

type recordingSink struct {
	mu    sync.Mutex
	calls int
	err   error
	block chan struct{}
}

func (s *recordingSink) SaveResult(context.Context, string, domain.Result) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type authorityFunc func(context.Context) error

func (f authorityFunc) VerifySession(ctx context.Context) error { return f(ctx) }

package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/waready/cepreuna-quiz/internal/domain"
	"github.com/waready/cepreuna-quiz/internal/scoring"
)

// SessionConfig holds the exam rules shared by all sessions of a service.
type SessionConfig struct {
	// Duration is the exam length used when a quiz carries no time limit.
	Duration      time.Duration
	MaxScore      float64
	TickInterval  time.Duration
	SubmitTimeout time.Duration
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.Duration <= 0 {
		c.Duration = 120 * time.Minute
	}
	if c.MaxScore <= 0 {
		c.MaxScore = scoring.DefaultMaxScore
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = 15 * time.Second
	}
	return c
}

// Session is one attempt at a quiz: it owns the answers, the cursor, the
// countdown and the one-way completion transition.
type Session struct {
	id        string
	quizID    string
	cfg       SessionConfig
	submitter *Submitter
	log       zerolog.Logger
	now       func() time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	submitted chan struct{}

	mu          sync.RWMutex
	state       domain.SessionState
	closed      bool
	err         error
	quiz        domain.Quiz
	duration    int
	answers     *AnswerStore
	cursor      int
	countdown   *Countdown
	startedAt   time.Time
	result      domain.Result
	submission  domain.SubmissionStatus
	subscribers map[chan domain.SessionSnapshot]struct{}
}

// NewSession creates a session in the loading state. Values of ctx (such as
// credentials) are kept for background work; its cancellation is not.
// A nil submitter keeps results local.
func NewSession(ctx context.Context, quizID string, cfg SessionConfig, submitter *Submitter, log zerolog.Logger) *Session {
	return NewSessionWithClock(ctx, uuid.NewString(), quizID, cfg, submitter, log, time.Now)
}

// NewSessionWithClock is NewSession with a fixed id and clock, for deterministic timestamps.
func NewSessionWithClock(ctx context.Context, id, quizID string, cfg SessionConfig, submitter *Submitter, log zerolog.Logger, now func() time.Time) *Session {
	base, cancel := context.WithCancel(context.WithoutCancel(ctx))
	return &Session{
		id:          id,
		quizID:      quizID,
		cfg:         cfg.withDefaults(),
		submitter:   submitter,
		log:         log.With().Str("session_id", id).Str("quiz_id", quizID).Logger(),
		now:         now,
		ctx:         base,
		cancel:      cancel,
		submitted:   make(chan struct{}),
		state:       domain.StateLoading,
		subscribers: make(map[chan domain.SessionSnapshot]struct{}),
	}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) QuizID() string { return s.quizID }

// Load fetches the quiz, initialises the answers and starts the countdown.
// A fetch or validation failure moves the session to the terminal error state.
func (s *Session) Load(ctx context.Context, quizzes QuizRepository) error {
	s.mu.RLock()
	closed, state := s.closed, s.state
	s.mu.RUnlock()
	if closed {
		return domain.ErrSessionClosed
	}
	if state != domain.StateLoading {
		return domain.ErrSessionNotActive
	}

	loadCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	quiz, err := quizzes.GetQuiz(loadCtx, s.quizID)
	stop()
	cancel()
	if err == nil {
		err = quiz.Validate()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.state != domain.StateLoading {
		return domain.ErrSessionNotActive
	}
	if err != nil {
		s.state = domain.StateError
		s.err = fmt.Errorf("%w: %w", domain.ErrFetch, err)
		s.log.Error().Err(err).Msg("quiz load failed")
		s.broadcastLocked()
		return s.err
	}

	s.quiz = quiz
	s.answers = NewAnswerStore(quiz.Questions)
	s.duration = int(s.cfg.Duration / time.Second)
	if quiz.Metadata.TimeLimit > 0 {
		s.duration = quiz.Metadata.TimeLimit * 60
	}
	s.countdown = NewCountdown(s.duration, s.cfg.TickInterval, s.onTick, s.onExpire)
	s.startedAt = s.now()
	s.state = domain.StateInProgress
	s.countdown.Start(s.ctx)
	s.log.Info().Int("questions", len(quiz.Questions)).Int("duration_s", s.duration).Msg("session started")
	s.broadcastLocked()
	return nil
}

// Select toggles option on a question. Selections outside the loaded set are ignored.
func (s *Session) Select(questionID string, option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return err
	}
	if _, ok := s.answers.Select(questionID, option); !ok {
		s.log.Debug().Err(domain.ErrInvalidSelection).Str("question_id", questionID).Int("option", option).Msg("selection ignored")
		return nil
	}
	s.broadcastLocked()
	return nil
}

// SelectCurrent toggles option on the question under the cursor.
func (s *Session) SelectCurrent(option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return err
	}
	questionID := s.quiz.Questions[s.cursor].ID
	if _, ok := s.answers.Select(questionID, option); !ok {
		s.log.Debug().Err(domain.ErrInvalidSelection).Str("question_id", questionID).Int("option", option).Msg("selection ignored")
		return nil
	}
	s.broadcastLocked()
	return nil
}

// Next advances the cursor; on the last question it finishes the quiz.
func (s *Session) Next() error {
	s.mu.Lock()
	if err := s.activeLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.cursor < len(s.quiz.Questions)-1 {
		s.cursor++
		s.broadcastLocked()
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	s.complete(domain.TriggerManual)
	return nil
}

// Previous moves the cursor back one question.
func (s *Session) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return err
	}
	if s.cursor > 0 {
		s.cursor--
		s.broadcastLocked()
	}
	return nil
}

// Finish completes the session. A repeated call returns the existing result with completed=false.
func (s *Session) Finish() (result domain.Result, completed bool, err error) {
	s.mu.RLock()
	closed, state := s.closed, s.state
	s.mu.RUnlock()
	switch {
	case closed:
		return domain.Result{}, false, domain.ErrSessionClosed
	case state == domain.StateLoading || state == domain.StateError:
		return domain.Result{}, false, domain.ErrSessionNotActive
	}
	result, completed = s.complete(domain.TriggerManual)
	return result, completed, nil
}

// complete is the only transition into StateCompleted. The state check and the
// transition happen under one lock, so concurrent triggers score once.
func (s *Session) complete(trigger domain.Trigger) (domain.Result, bool) {
	s.mu.Lock()
	if s.closed || s.state != domain.StateInProgress {
		result := s.result
		s.mu.Unlock()
		return result, false
	}

	remaining := s.countdown.Remaining()
	s.countdown.Stop()

	result := scoring.Score(s.quiz.Questions, s.answers.Selections(), s.quiz.Metadata.Weighting, s.cfg.MaxScore)
	result.QuizID = s.quizID
	result.SubjectArea = s.quiz.Metadata.SubjectArea
	result.TimeUsed = time.Duration(s.duration-remaining) * time.Second
	result.Trigger = trigger
	result.CompletedAt = s.now()

	s.result = result
	s.state = domain.StateCompleted
	if s.submitter != nil {
		s.submission = domain.SubmissionPending
	}
	s.broadcastLocked()
	s.mu.Unlock()

	s.log.Info().
		Str("trigger", string(trigger)).
		Int("raw_score", result.RawScore).
		Float64("weighted_score", result.WeightedScore).
		Int("percentage", result.Percentage).
		Int("time_used_s", result.TimeUsedSeconds()).
		Msg("session completed")

	if s.submitter == nil {
		close(s.submitted)
	} else {
		go s.submit(result)
	}
	return result, true
}

func (s *Session) submit(result domain.Result) {
	defer close(s.submitted)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), s.cfg.SubmitTimeout)
	defer cancel()

	err := s.submitter.Submit(ctx, s.quizID, result)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err != nil {
		s.submission = domain.SubmissionFailed
	} else {
		s.submission = domain.SubmissionSaved
	}
	s.broadcastLocked()
}

func (s *Session) onTick(int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != domain.StateInProgress {
		return
	}
	s.broadcastLocked()
}

func (s *Session) onExpire() {
	s.complete(domain.TriggerTimeout)
}

// Close tears the session down: the countdown stops, an in-flight load is
// cancelled, subscribers are released and later submission outcomes are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.countdown != nil {
		s.countdown.Stop()
	}
	s.cancel()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Submitted is closed once the result submission has finished, successfully or not.
func (s *Session) Submitted() <-chan struct{} {
	return s.submitted
}

func (s *Session) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the fetch error of a session in the error state.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Result returns the result once the session is completed.
func (s *Session) Result() (domain.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result, s.state == domain.StateCompleted
}

// Records returns the answers in question order, or nil before loading.
func (s *Session) Records() []domain.AnswerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.answers == nil {
		return nil
	}
	return s.answers.Records()
}

func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel receiving a snapshot after every state change,
// starting with the current one. The caller must invoke cancel to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.SessionSnapshot, func()) {
	ch := make(chan domain.SessionSnapshot, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) activeLocked() error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.state != domain.StateInProgress {
		return domain.ErrSessionNotActive
	}
	return nil
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow subscriber: replace its oldest snapshot with the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		SessionID:        s.id,
		QuizID:           s.quizID,
		SubjectArea:      s.quiz.Metadata.SubjectArea,
		State:            s.state,
		Cursor:           s.cursor,
		QuestionCount:    len(s.quiz.Questions),
		RemainingSeconds: int(s.cfg.Duration / time.Second),
		Submission:       s.submission,
	}
	if s.countdown != nil {
		snap.RemainingSeconds = s.countdown.Remaining()
	}
	if s.answers != nil {
		snap.Answered = s.answers.Answered()
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	switch s.state {
	case domain.StateInProgress:
		q := s.quiz.Questions[s.cursor]
		snap.Current = &domain.QuestionView{
			ID:       q.ID,
			Subject:  q.Subject,
			Weight:   s.quiz.Metadata.WeightFor(q.Subject),
			Prompt:   q.Prompt,
			ImageURL: q.ImageURL,
			Options:  q.Options,
			Selected: s.answers.Get(q.ID),
		}
	case domain.StateCompleted:
		result := s.result
		snap.Result = &result
	}
	return snap
}

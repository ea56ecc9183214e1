package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/waready/cepreuna-quiz/internal/domain"
)

// SessionRepository abstracts where live sessions are registered (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizService contains the quiz attempt use cases. Each attempt owns an independent Session.
type QuizService struct {
	sessions  SessionRepository
	quizzes   QuizRepository
	submitter *Submitter
	cfg       SessionConfig
	log       zerolog.Logger
}

func NewQuizService(store SessionRepository, quizzes QuizRepository, submitter *Submitter, cfg SessionConfig, log zerolog.Logger) *QuizService {
	return &QuizService{
		sessions:  store,
		quizzes:   quizzes,
		submitter: submitter,
		cfg:       cfg,
		log:       log.With().Str("component", "quiz_service").Logger(),
	}
}

// Start opens a new attempt at quizID and loads it. When loading fails the
// session is still returned, in the error state, alongside the error.
func (s *QuizService) Start(ctx context.Context, quizID string) (*Session, error) {
	session := NewSession(ctx, quizID, s.cfg, s.submitter, s.log)
	s.sessions.Put(session)
	if err := session.Load(ctx, s.quizzes); err != nil {
		return session, err
	}
	return session, nil
}

// Session looks up a live session.
func (s *QuizService) Session(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Select toggles an answer. Unknown questions or options are ignored.
func (s *QuizService) Select(_ context.Context, sessionID, questionID string, option int) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	return session.Select(questionID, option)
}

func (s *QuizService) Next(_ context.Context, sessionID string) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	return session.Next()
}

func (s *QuizService) Previous(_ context.Context, sessionID string) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	return session.Previous()
}

// Finish completes the attempt; completed is false when it had already finished.
func (s *QuizService) Finish(_ context.Context, sessionID string) (domain.Result, bool, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return domain.Result{}, false, err
	}
	return session.Finish()
}

// Subscribe returns a channel that receives snapshots of a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan domain.SessionSnapshot, func(), error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Teardown closes a session and forgets it, e.g. when the participant navigates away.
func (s *QuizService) Teardown(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(sessionID)
}

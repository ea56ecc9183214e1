package domain

import "errors"

var (
	// ErrFetch wraps any failure to load quiz metadata or questions; the session cannot start.
	ErrFetch = errors.New("could not load quiz")
	// ErrSubmission wraps a failed result persistence; the local result stays valid.
	ErrSubmission = errors.New("result not saved")
	// ErrInvalidSelection is an answer for a question or option outside the current set.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrSessionNotFound is returned when a quiz session has not been initialized.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionNotActive is returned for interaction outside the in-progress state.
	ErrSessionNotActive = errors.New("quiz session not in progress")
	// ErrSessionClosed is returned once a session has been torn down.
	ErrSessionClosed = errors.New("quiz session closed")
	// ErrSessionDenied means the external authority no longer accepts the caller's session.
	ErrSessionDenied = errors.New("session rejected by authority")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNoQuestions indicates the quiz has an empty question set.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrInvalidQuiz indicates the loaded quiz breaks a data invariant.
	ErrInvalidQuiz = errors.New("invalid quiz data")
)

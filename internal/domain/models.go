package domain

import (
	"encoding/json"
	"time"
)

// DefaultWeight applies to subjects the quiz weighting does not list.
const DefaultWeight = 1.0

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID                 string   `json:"id" validate:"required"`
	Subject            string   `json:"subject"`
	Prompt             string   `json:"prompt"`
	ImageURL           string   `json:"imageUrl,omitempty"`
	Options            []string `json:"options" validate:"min=1"`
	CorrectOptionIndex int      `json:"correctOptionIndex" validate:"gte=0"`
}

// QuizMetadata describes a quiz as listed by the portal API.
type QuizMetadata struct {
	ID            string             `json:"id" validate:"required"`
	Title         string             `json:"title,omitempty"`
	SubjectArea   string             `json:"subjectArea"`
	Weighting     map[string]float64 `json:"weighting" validate:"dive,gt=0"`
	QuestionCount int                `json:"questionCount,omitempty"`
	// TimeLimit in minutes; zero means the configured exam duration.
	TimeLimit int `json:"timeLimit,omitempty"`
}

// WeightFor returns the weight of subject, defaulting to DefaultWeight.
func (m QuizMetadata) WeightFor(subject string) float64 {
	if w, ok := m.Weighting[subject]; ok {
		return w
	}
	return DefaultWeight
}

// Quiz bundles metadata and the ordered question set fetched for one attempt.
type Quiz struct {
	Metadata  QuizMetadata `json:"metadata"`
	Questions []Question   `json:"questions" validate:"dive"`
}

// Selection is an option index, or NoSelection.
type Selection int

// NoSelection marks a question without an answer.
const NoSelection Selection = -1

// Answered reports whether an option is selected.
func (s Selection) Answered() bool { return s >= 0 }

func (s Selection) MarshalJSON() ([]byte, error) {
	if !s.Answered() {
		return []byte("null"), nil
	}
	return json.Marshal(int(s))
}

func (s *Selection) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = NoSelection
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Selection(v)
	return nil
}

// AnswerRecord is the answer state of one question.
type AnswerRecord struct {
	QuestionID string    `json:"questionId"`
	Selected   Selection `json:"selected"`
}

// SubjectResult is the per-subject breakdown of a Result.
type SubjectResult struct {
	Weight            float64 `json:"weight"`
	AnsweredCorrect   int     `json:"correct"`
	TotalQuestions    int     `json:"total"`
	WeightedPoints    float64 `json:"weightedPoints"`
	MaxPossiblePoints float64 `json:"maxPossible"`
}

// Trigger names what completed a session.
type Trigger string

const (
	TriggerManual  Trigger = "manual"
	TriggerTimeout Trigger = "timeout"
)

// Result is the outcome of a completed session.
type Result struct {
	QuizID        string                   `json:"quizId"`
	SubjectArea   string                   `json:"subjectArea"`
	RawScore      int                      `json:"rawScore"`
	WeightedScore float64                  `json:"weightedScore"`
	Percentage    int                      `json:"percentage"`
	BySubject     map[string]SubjectResult `json:"resultsBySubject"`
	TimeUsed      time.Duration            `json:"-"`
	Trigger       Trigger                  `json:"trigger"`
	CompletedAt   time.Time                `json:"completedAt"`
}

// TimeUsedSeconds is TimeUsed truncated to whole seconds.
func (r Result) TimeUsedSeconds() int {
	return int(r.TimeUsed / time.Second)
}

// SessionState is the lifecycle state of a quiz session.
type SessionState string

const (
	StateLoading    SessionState = "loading"
	StateInProgress SessionState = "in_progress"
	StateCompleted  SessionState = "completed"
	StateError      SessionState = "error"
)

// SubmissionStatus tracks the best-effort persistence of a Result.
type SubmissionStatus string

const (
	SubmissionNone    SubmissionStatus = ""
	SubmissionPending SubmissionStatus = "pending"
	SubmissionSaved   SubmissionStatus = "saved"
	SubmissionFailed  SubmissionStatus = "failed"
)

// QuestionView is a question as shown to the participant; the correct index is withheld.
type QuestionView struct {
	ID       string    `json:"id"`
	Subject  string    `json:"subject"`
	Weight   float64   `json:"weight"`
	Prompt   string    `json:"prompt"`
	ImageURL string    `json:"imageUrl,omitempty"`
	Options  []string  `json:"options"`
	Selected Selection `json:"selected"`
}

// SessionSnapshot is the read model pushed to transports on every state change.
type SessionSnapshot struct {
	SessionID        string           `json:"sessionId"`
	QuizID           string           `json:"quizId"`
	SubjectArea      string           `json:"subjectArea"`
	State            SessionState     `json:"state"`
	Cursor           int              `json:"cursor"`
	QuestionCount    int              `json:"questionCount"`
	Answered         int              `json:"answered"`
	Current          *QuestionView    `json:"current,omitempty"`
	RemainingSeconds int              `json:"remainingSeconds"`
	Result           *Result          `json:"result,omitempty"`
	Submission       SubmissionStatus `json:"submission,omitempty"`
	Error            string           `json:"error,omitempty"`
}

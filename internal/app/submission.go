package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/waready/cepreuna-quiz/internal/domain"
)

// ResultSink persists a completed result (portal API, Postgres archive, local history).
type ResultSink interface {
	SaveResult(ctx context.Context, quizID string, result domain.Result) error
}

// SessionAuthority answers whether the caller's portal session is still valid.
type SessionAuthority interface {
	VerifySession(ctx context.Context) error
}

// Submitter delivers results to every sink after checking the authority.
// It never alters the result it is given.
type Submitter struct {
	authority SessionAuthority
	sinks     []ResultSink
	attempts  int
	baseDelay time.Duration
	log       zerolog.Logger
}

// SubmitterOption configures a Submitter.
type SubmitterOption func(*Submitter)

// WithAuthority requires a valid portal session before any sink is written.
func WithAuthority(a SessionAuthority) SubmitterOption {
	return func(s *Submitter) { s.authority = a }
}

// WithAttempts bounds the number of delivery attempts per sink. One means no retry.
func WithAttempts(n int, baseDelay time.Duration) SubmitterOption {
	return func(s *Submitter) {
		if n > 0 {
			s.attempts = n
		}
		if baseDelay > 0 {
			s.baseDelay = baseDelay
		}
	}
}

func NewSubmitter(log zerolog.Logger, sinks []ResultSink, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		sinks:     sinks,
		attempts:  1,
		baseDelay: 500 * time.Millisecond,
		log:       log.With().Str("component", "submitter").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit persists result. Any failure, including a denied session, is returned
// wrapped in domain.ErrSubmission.
func (s *Submitter) Submit(ctx context.Context, quizID string, result domain.Result) error {
	if s.authority != nil {
		if err := s.authority.VerifySession(ctx); err != nil {
			s.log.Warn().Err(err).Str("quiz_id", quizID).Msg("session verification failed, result kept locally")
			return fmt.Errorf("%w: %w", domain.ErrSubmission, err)
		}
	}

	var errs []error
	for _, sink := range s.sinks {
		if err := s.deliver(ctx, sink, quizID, result); err != nil {
			s.log.Error().Err(err).Str("quiz_id", quizID).Str("sink", fmt.Sprintf("%T", sink)).Msg("save result failed")
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrSubmission, errors.Join(errs...))
	}
	s.log.Info().Str("quiz_id", quizID).Int("raw_score", result.RawScore).Float64("weighted_score", result.WeightedScore).Msg("result saved")
	return nil
}

func (s *Submitter) deliver(ctx context.Context, sink ResultSink, quizID string, result domain.Result) error {
	if s.attempts <= 1 {
		return sink.SaveResult(ctx, quizID, result)
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.baseDelay
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.attempts-1)), ctx)
	return backoff.Retry(func() error {
		err := sink.SaveResult(ctx, quizID, result)
		if errors.Is(err, domain.ErrSessionDenied) {
			return backoff.Permanent(err)
		}
		return err
	}, retry)
}

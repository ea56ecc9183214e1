// Package api is the client of the student portal REST API: quiz listing,
// question sets, result persistence and session verification.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/waready/cepreuna-quiz/internal/domain"
)

// SessionCookie is the portal's session cookie; the caller's token is sent under it.
const SessionCookie = "connect.sid"

type tokenKey struct{}

// ContextWithToken attaches the participant's portal credential to ctx.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the credential set by ContextWithToken.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Client talks to the portal API. It implements the quiz loader, the result
// sink and the session authority.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "api_client").Logger(),
	}
}

// ListQuizzes returns every quiz offered by the portal.
func (c *Client) ListQuizzes(ctx context.Context) ([]domain.QuizMetadata, error) {
	var env envelope[[]quizDTO]
	if err := c.do(ctx, http.MethodGet, "/quizzes", nil, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, remoteError("list quizzes", env.Error)
	}
	list := make([]domain.QuizMetadata, 0, len(env.Data))
	for _, dto := range env.Data {
		list = append(list, dto.toDomain())
	}
	return list, nil
}

// GetQuestions returns the ordered question set of a quiz.
func (c *Client) GetQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	var env envelope[[]questionDTO]
	if err := c.do(ctx, http.MethodGet, "/quizzes/"+url.PathEscape(quizID)+"/questions", nil, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, remoteError("get questions", env.Error)
	}
	questions := make([]domain.Question, 0, len(env.Data))
	for _, dto := range env.Data {
		questions = append(questions, dto.toDomain())
	}
	return questions, nil
}

// LoadQuiz fetches the quiz list and the question set concurrently and
// combines them. A quiz id missing from the list is domain.ErrQuizNotFound.
func (c *Client) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var (
		list      []domain.QuizMetadata
		questions []domain.Question
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = c.ListQuizzes(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		questions, err = c.GetQuestions(gctx, quizID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Quiz{}, err
	}

	for _, meta := range list {
		if meta.ID == quizID {
			return domain.Quiz{Metadata: meta, Questions: questions}, nil
		}
	}
	return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, quizID)
}

// SaveResult posts a completed result. Only success or failure is observed.
func (c *Client) SaveResult(ctx context.Context, quizID string, result domain.Result) error {
	var env envelope[json.RawMessage]
	if err := c.do(ctx, http.MethodPost, "/quizzes/save-result", newSaveResultRequest(quizID, result), &env); err != nil {
		return err
	}
	if !env.Success {
		return remoteError("save result", env.Error)
	}
	return nil
}

// VerifySession asks the portal whether the caller's session is still valid.
func (c *Client) VerifySession(ctx context.Context) error {
	var env envelope[json.RawMessage]
	err := c.do(ctx, http.MethodGet, "/verify-session", nil, &env)
	var se *StatusError
	if errors.As(err, &se) && (se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden) {
		return fmt.Errorf("%w: %v", domain.ErrSessionDenied, err)
	}
	if err != nil {
		return err
	}
	if !env.Success {
		return fmt.Errorf("%w: %s", domain.ErrSessionDenied, env.Error)
	}
	return nil
}

// StatusError is a non-2xx portal response.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("portal call")

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Method: method, Path: path, Code: resp.StatusCode}
		var env envelope[json.RawMessage]
		if json.Unmarshal(raw, &env) == nil {
			se.Message = env.Error
		}
		return se
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

func remoteError(op, msg string) error {
	if msg == "" {
		msg = "request not successful"
	}
	return fmt.Errorf("%s: %s", op, msg)
}

package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/waready/cepreuna-quiz/internal/app"
	"github.com/waready/cepreuna-quiz/internal/config"
	"github.com/waready/cepreuna-quiz/internal/domain"
	"github.com/waready/cepreuna-quiz/internal/infra/api"
	"github.com/waready/cepreuna-quiz/internal/infra/memory"
	"github.com/waready/cepreuna-quiz/internal/infra/postgres"
	redisinfra "github.com/waready/cepreuna-quiz/internal/infra/redis"
	"github.com/waready/cepreuna-quiz/internal/infra/sqlite"
	"github.com/waready/cepreuna-quiz/internal/logger"
)

// quizLister is implemented by every quiz source.
type quizLister interface {
	ListQuizzes(ctx context.Context) ([]domain.QuizMetadata, error)
}

type quizSource interface {
	memory.QuizLoader
	quizLister
}

// deps holds the infrastructure built from one configuration.
type deps struct {
	cfg     config.Config
	log     zerolog.Logger
	api     *api.Client
	pool    *pgxpool.Pool
	redis   *redis.Client
	history *sqlite.HistoryStore
	demo    bool
	closers []func()
}

// loadDeps connects the configured backends. With toStderr false the log goes
// to log.file (or nowhere), keeping the terminal free for the quiz runner.
func loadDeps(ctx context.Context, configPath string, toStderr bool) (*deps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	d := &deps{cfg: cfg, demo: demo}
	if toStderr {
		d.log = logger.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	} else {
		w, err := logger.OpenFile(cfg.Log.File)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		d.closers = append(d.closers, func() { _ = w.Close() })
		d.log = logger.Setup(w, cfg.Log.Level, cfg.Log.Format)
	}

	if !d.demo {
		d.api = api.NewClient(cfg.API.BaseURL, config.TTLDuration(cfg.API.Timeout, 10*time.Second), d.log)
	}
	if cfg.Postgres.URL != "" {
		d.pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		d.closers = append(d.closers, d.pool.Close)
	}
	if cfg.Redis.Addr != "" {
		d.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.closers = append(d.closers, func() { _ = d.redis.Close() })
	}
	if cfg.History.Path != "" {
		d.history, err = sqlite.OpenHistory(cfg.History.Path)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("open history: %w", err)
		}
		d.closers = append(d.closers, func() { _ = d.history.Close() })
	}
	return d, nil
}

// Close releases resources in reverse order of acquisition.
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

// quizSource picks where quiz content comes from: demo data, Postgres, or the portal API.
func (d *deps) quizSource() quizSource {
	switch {
	case d.demo:
		return memory.NewStaticQuizLoader(sampleQuizzes())
	case d.pool != nil:
		return postgres.NewQuizLoader(d.pool)
	default:
		return d.api
	}
}

func (d *deps) quizRepository() app.QuizRepository {
	ttl := config.TTLDuration(d.cfg.Quiz.TTL, 10*time.Minute)
	if d.redis != nil {
		return redisinfra.NewQuizRepository(d.redis, d.quizSource(), ttl, d.log)
	}
	return memory.NewQuizRepository(d.quizSource(), ttl)
}

func (d *deps) sessionStore() app.SessionRepository {
	if d.redis != nil {
		return redisinfra.NewSessionStore(d.redis, config.TTLDuration(d.cfg.Redis.TTL, 10*time.Minute), d.log)
	}
	return memory.NewSessionStore()
}

// submitter writes results to the portal (verified first), the Postgres
// archive and the local history, whichever are configured.
func (d *deps) submitter() *app.Submitter {
	var (
		sinks []app.ResultSink
		opts  []app.SubmitterOption
	)
	if d.api != nil {
		sinks = append(sinks, d.api)
		opts = append(opts, app.WithAuthority(d.api))
	}
	if d.pool != nil {
		sinks = append(sinks, postgres.NewResultStore(d.pool))
	}
	if d.history != nil {
		sinks = append(sinks, d.history)
	}
	if len(sinks) == 0 {
		return nil
	}
	opts = append(opts, app.WithAttempts(d.cfg.Submission.Attempts, 0))
	return app.NewSubmitter(d.log, sinks, opts...)
}

func (d *deps) sessionConfig() app.SessionConfig {
	return app.SessionConfig{
		Duration:      config.TTLDuration(d.cfg.Quiz.Duration, 120*time.Minute),
		MaxScore:      d.cfg.Quiz.MaxScore,
		SubmitTimeout: config.TTLDuration(d.cfg.Submission.Timeout, 15*time.Second),
	}
}

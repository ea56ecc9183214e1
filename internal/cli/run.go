package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/waready/cepreuna-quiz/internal/app"
	"github.com/waready/cepreuna-quiz/internal/domain"
	"github.com/waready/cepreuna-quiz/internal/infra/api"
	"github.com/waready/cepreuna-quiz/internal/tui"
)

// NewRunCmd runs one quiz attempt in the terminal.
func NewRunCmd(configPath *string) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "run <quizId>",
		Short: "Take a quiz in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = os.Getenv("QUIZ_API_TOKEN")
			}
			return runQuiz(cmd, *configPath, args[0], token)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "portal session token (default $QUIZ_API_TOKEN)")
	return cmd
}

func runQuiz(cmd *cobra.Command, configPath, quizID, token string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := loadDeps(ctx, configPath, false)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx = api.ContextWithToken(ctx, token)
	cfg := d.sessionConfig()
	session := app.NewSession(ctx, quizID, cfg, d.submitter(), d.log)
	repo := d.quizRepository()

	runErr := tui.Run(ctx, session, func() error { return session.Load(ctx, repo) })

	result, completed := session.Result()
	if completed {
		// The result is already on screen; give the save a bounded chance to finish.
		select {
		case <-session.Submitted():
		case <-time.After(cfg.SubmitTimeout):
		}
	}
	snap := session.Snapshot()
	session.Close()
	if runErr != nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	switch {
	case completed:
		fmt.Fprintf(out, "%s: %d%% (weighted %.0f, raw %d) in %s\n",
			quizID, result.Percentage, result.WeightedScore, result.RawScore, tui.FormatClock(result.TimeUsedSeconds()))
		if snap.Submission == domain.SubmissionFailed {
			fmt.Fprintln(out, "result not saved")
		}
	case snap.State == domain.StateError:
		return session.Err()
	}
	return nil
}


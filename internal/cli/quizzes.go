package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/waready/cepreuna-quiz/internal/domain"
	"github.com/waready/cepreuna-quiz/internal/infra/api"
)

// Shown for quizzes the portal lists without these fields.
const (
	defaultTitle         = "Untitled quiz"
	defaultSubjectArea   = "General"
	defaultQuestionCount = 60
	defaultTimeLimit     = 120
)

var headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Bold(true)

// NewQuizzesCmd lists the quizzes available to take.
func NewQuizzesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "quizzes",
		Short: "List available quizzes",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps(cmd.Context(), *configPath, false)
			if err != nil {
				return err
			}
			defer d.Close()

			ctx := api.ContextWithToken(cmd.Context(), os.Getenv("QUIZ_API_TOKEN"))
			list, err := d.quizSource().ListQuizzes(ctx)
			if err != nil {
				return fmt.Errorf("%w: %w", domain.ErrFetch, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderQuizTable(list))
			return nil
		},
	}
}

func renderQuizTable(list []domain.QuizMetadata) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TITLE", "AREA", "QUESTIONS", "MINUTES").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, meta := range list {
		meta = withListDefaults(meta)
		t.Row(meta.ID, meta.Title, meta.SubjectArea, strconv.Itoa(meta.QuestionCount), strconv.Itoa(meta.TimeLimit))
	}
	return t.Render()
}

func withListDefaults(meta domain.QuizMetadata) domain.QuizMetadata {
	if meta.Title == "" {
		meta.Title = defaultTitle
	}
	if meta.SubjectArea == "" {
		meta.SubjectArea = defaultSubjectArea
	}
	if meta.QuestionCount <= 0 {
		meta.QuestionCount = defaultQuestionCount
	}
	if meta.TimeLimit <= 0 {
		meta.TimeLimit = defaultTimeLimit
	}
	return meta
}

package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/waready/cepreuna-quiz/internal/infra/sqlite"
	"github.com/waready/cepreuna-quiz/internal/tui"
)

// NewHistoryCmd prints the locally stored attempts.
func NewHistoryCmd(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show finished attempts stored in history.path",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps(cmd.Context(), *configPath, false)
			if err != nil {
				return err
			}
			defer d.Close()
			if d.history == nil {
				return errors.New("history.path not configured")
			}

			entries, err := d.history.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHistoryTable(entries))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of attempts to show (0 for all)")
	return cmd
}

func renderHistoryTable(entries []sqlite.HistoryEntry) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("DATE", "QUIZ", "AREA", "SCORE", "%", "RAW", "TIME", "END").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, e := range entries {
		r := e.Result
		t.Row(
			r.CompletedAt.Local().Format("2006-01-02 15:04"),
			r.QuizID,
			r.SubjectArea,
			strconv.FormatFloat(r.WeightedScore, 'f', 0, 64),
			strconv.Itoa(r.Percentage),
			strconv.Itoa(r.RawScore),
			tui.FormatClock(r.TimeUsedSeconds()),
			string(r.Trigger),
		)
	}
	return t.Render()
}

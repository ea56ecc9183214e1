// Package tui provides the Bubble Tea quiz runner.
package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/waready/cepreuna-quiz/internal/app"
	"github.com/waready/cepreuna-quiz/internal/domain"
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	clockStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	urgentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	cardStyle     = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
)

type snapshotMsg domain.SessionSnapshot

type closedMsg struct{}

type loadedMsg struct{ err error }

// Model implements the Bubble Tea quiz UI over one session.
type Model struct {
	session     *app.Session
	updates     <-chan domain.SessionSnapshot
	unsubscribe func()
	load        func() error
	snap        domain.SessionSnapshot

	width  int
	height int
}

// NewModel builds a model for session. load, when set, runs once at start
// so the loading screen is shown while the quiz is fetched.
func NewModel(session *app.Session, load func() error) *Model {
	updates, unsubscribe := session.Subscribe()
	return &Model{
		session:     session,
		updates:     updates,
		unsubscribe: unsubscribe,
		load:        load,
		snap:        session.Snapshot(),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForSnapshot(m.updates)}
	if m.load != nil {
		load := m.load
		cmds = append(cmds, func() tea.Msg { return loadedMsg{err: load()} })
	}
	return tea.Batch(cmds...)
}

func waitForSnapshot(updates <-chan domain.SessionSnapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg(snap)
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case snapshotMsg:
		m.snap = domain.SessionSnapshot(msg)
		return m, waitForSnapshot(m.updates)
	case loadedMsg:
		// The outcome also arrives as a snapshot; this only refreshes eagerly.
		m.snap = m.session.Snapshot()
		return m, nil
	case closedMsg:
		return m, m.quit()
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	default:
		return m, nil
	}
}

// quit drops the subscription before leaving the program.
func (m *Model) quit() tea.Cmd {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	return tea.Quit
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}
	if m.snap.State != domain.StateInProgress {
		switch msg.String() {
		case "q", "esc", "enter":
			return m.quit()
		}
		return nil
	}

	switch msg.Type {
	case tea.KeyLeft:
		_ = m.session.Previous()
	case tea.KeyRight, tea.KeyEnter:
		_ = m.session.Next()
	case tea.KeyRunes:
		if len(msg.Runes) != 1 {
			return nil
		}
		r := msg.Runes[0]
		switch {
		case r == 'f':
			_, _, _ = m.session.Finish()
		case r == 'p':
			_ = m.session.Previous()
		case r == 'n':
			_ = m.session.Next()
		case r >= '1' && r <= '9':
			_ = m.session.SelectCurrent(int(r - '1'))
		case r >= 'a' && r <= 'e':
			_ = m.session.SelectCurrent(int(r - 'a'))
		}
	}
	m.snap = m.session.Snapshot()
	return nil
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch m.snap.State {
	case domain.StateLoading:
		content = mutedStyle.Render("Loading quiz...")
	case domain.StateError:
		content = renderError(m.snap)
	case domain.StateCompleted:
		content = renderResult(m.snap)
	default:
		content = renderQuestion(m.snap)
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func renderError(snap domain.SessionSnapshot) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		errorStyle.Render("Could not load quiz"),
		mutedStyle.Render(snap.Error),
		"",
		footerStyle.Render("q: back to quiz list"),
	)
}

func renderQuestion(snap domain.SessionSnapshot) string {
	q := snap.Current
	if q == nil {
		return ""
	}
	clock := clockStyle.Render(FormatClock(snap.RemainingSeconds))
	if snap.RemainingSeconds <= 300 {
		clock = urgentStyle.Render(FormatClock(snap.RemainingSeconds))
	}
	header := fmt.Sprintf("%s  %s", titleStyle.Render(snap.SubjectArea), clock)

	progress := 0
	if snap.QuestionCount > 0 {
		progress = (snap.Cursor + 1) * 100 / snap.QuestionCount
	}
	lines := []string{
		header,
		mutedStyle.Render(fmt.Sprintf("Question %d of %d (%d%%)  answered %d", snap.Cursor+1, snap.QuestionCount, progress, snap.Answered)),
		"",
		mutedStyle.Render(fmt.Sprintf("%s  weight %.3f", q.Subject, q.Weight)),
		titleStyle.Render(q.Prompt),
	}
	if q.ImageURL != "" {
		lines = append(lines, mutedStyle.Render("image: "+q.ImageURL))
	}
	lines = append(lines, "")
	for i, option := range q.Options {
		line := fmt.Sprintf("  %c) %s", 'a'+rune(i), option)
		if domain.Selection(i) == q.Selected {
			line = selectedStyle.Render(fmt.Sprintf("> %c) %s", 'a'+rune(i), option))
		}
		lines = append(lines, line)
	}
	lines = append(lines, "", footerStyle.Render("a-e/1-9 select  ←/p previous  →/n/enter next  f finish  ctrl+c quit"))
	return strings.Join(lines, "\n")
}

func renderResult(snap domain.SessionSnapshot) string {
	r := snap.Result
	if r == nil {
		return ""
	}
	lines := []string{
		titleStyle.Render(fmt.Sprintf("%s  %d%%", snap.SubjectArea, r.Percentage)),
		fmt.Sprintf("Weighted score %.3f  raw %d", r.WeightedScore, r.RawScore),
		"",
	}
	cards := make([]string, 0, len(r.BySubject))
	for _, row := range SortedSubjects(r.BySubject) {
		cards = append(cards, cardStyle.Render(strings.Join([]string{
			titleStyle.Render(row.Subject),
			fmt.Sprintf("Weight %.3f", row.Weight),
			"Correct " + row.CorrectLabel(),
			"Points " + row.PointsLabel(),
		}, "\n")))
	}
	lines = append(lines, lipgloss.JoinVertical(lipgloss.Left, cards...))
	lines = append(lines, "", "Time used "+FormatClock(r.TimeUsedSeconds()))
	switch snap.Submission {
	case domain.SubmissionPending:
		lines = append(lines, mutedStyle.Render("Saving result..."))
	case domain.SubmissionFailed:
		lines = append(lines, errorStyle.Render("Result not saved"))
	}
	lines = append(lines, "", footerStyle.Render("q/enter: back to quiz list"))
	return strings.Join(lines, "\n")
}

// SubjectRow is one line of the result breakdown.
type SubjectRow struct {
	Subject string
	domain.SubjectResult
}

// CorrectLabel renders correct/total, or 0/0 for a subject without questions.
func (r SubjectRow) CorrectLabel() string {
	if r.TotalQuestions == 0 {
		return "0/0"
	}
	return fmt.Sprintf("%d/%d", r.AnsweredCorrect, r.TotalQuestions)
}

// PointsLabel renders weighted/max points, or 0/0 for a subject without questions.
func (r SubjectRow) PointsLabel() string {
	if r.TotalQuestions == 0 {
		return "0/0"
	}
	return fmt.Sprintf("%.3f/%.3f", r.WeightedPoints, r.MaxPossiblePoints)
}

// SortedSubjects orders subjects by weighted points, highest first, then by name.
func SortedSubjects(bySubject map[string]domain.SubjectResult) []SubjectRow {
	rows := make([]SubjectRow, 0, len(bySubject))
	for subject, res := range bySubject {
		rows = append(rows, SubjectRow{Subject: subject, SubjectResult: res})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].WeightedPoints != rows[j].WeightedPoints {
			return rows[i].WeightedPoints > rows[j].WeightedPoints
		}
		return rows[i].Subject < rows[j].Subject
	})
	return rows
}

// FormatClock renders seconds as HH:MM:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// Run drives session in the terminal until the participant quits or ctx ends.
func Run(ctx context.Context, session *app.Session, load func() error) error {
	p := tea.NewProgram(NewModel(session, load), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

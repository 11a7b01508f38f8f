package live

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"bookload/internal/runner"
	"bookload/internal/tui/components"
	"bookload/internal/tui/styles"
)

// Model is the live view of a running load test.
type Model struct {
	Stats    runner.StatsSnapshot
	Progress progress.Model

	OpsLine     components.Sparkline
	LatencyLine components.Sparkline

	Budget     time.Duration
	LastUpdate time.Time
	LastReqs   uint64

	Width  int
	Height int
}

func NewModel(budget time.Duration) Model {
	return Model{
		Progress: progress.New(
			progress.WithGradient(string(styles.ColorPrimary), string(styles.ColorSecondary)),
			progress.WithWidth(60),
		),
		OpsLine:     components.NewSparkline(40, "Submissions / s", styles.Active),
		LatencyLine: components.NewSparkline(40, "Avg response (ms)", styles.Warn),
		Budget:      budget,
		LastUpdate:  time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Percent is the share of the budget consumed, pinned to 1 once the
// virtual users are done.
func (m Model) Percent() float64 {
	switch m.Stats.Phase {
	case runner.PhaseIdle, runner.PhaseUsers:
	default:
		return 1
	}
	if m.Budget <= 0 {
		return 0
	}
	return min(m.Stats.Elapsed.Seconds()/m.Budget.Seconds(), 1)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runner.StatsSnapshot:
		now := time.Now()
		dt := max(now.Sub(m.LastUpdate).Seconds(), 0.01)

		if msg.Requests >= m.LastReqs {
			m.OpsLine.Push(float64(msg.Requests-m.LastReqs) / dt)
		}
		m.LatencyLine.Push(msg.AvgResponseMs)

		m.Stats = msg
		m.LastReqs = msg.Requests
		m.LastUpdate = now
		return m, m.Progress.SetPercent(m.Percent())

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = max(msg.Width-8, 10)

		half := max(msg.Width/2-8, 10)
		m.OpsLine.Width = half
		m.LatencyLine.Width = half
		return m, nil

	case progress.FrameMsg:
		newModel, cmd := m.Progress.Update(msg)
		if newModel, ok := newModel.(progress.Model); ok {
			m.Progress = newModel
		}
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	s := strings.Builder{}
	st := m.Stats

	errRate := st.ErrorRate
	col1 := fmt.Sprintf("SUBMITTED: %d\nUSERS: %d", st.Requests, st.ActiveUsers)
	col2 := styles.ErrorRateStyle(errRate).Render(fmt.Sprintf("ERR: %.2f%%\nFAIL: %d", errRate, st.Fail))
	col3 := fmt.Sprintf("PHASE: %s\nELAPSED: %s", styles.Active.Render(string(st.Phase)), st.Elapsed.Round(time.Second))

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(col1),
		styles.Box.Render(col2),
		styles.Box.Render(col3),
	))
	s.WriteString("\n\n")

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(m.OpsLine.View()),
		styles.Box.Render(m.LatencyLine.View()),
	))
	s.WriteString("\n\n")

	latencies := fmt.Sprintf(
		"Avg: %.2f ms  |  P50: %.2f ms  |  P95: %.2f ms  |  P99: %.2f ms  |  Max: %.2f ms",
		st.AvgResponseMs, st.P50Ms, st.P95Ms, st.P99Ms, st.MaxMs,
	)
	box := styles.Box
	if m.Width > 4 {
		box = box.Width(m.Width - 4)
	}
	s.WriteString(box.Render(latencies))
	s.WriteString("\n\n")

	s.WriteString(m.Progress.View())
	return s.String()
}

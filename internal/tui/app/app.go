// Package app is the interactive front end of a single load run.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"bookload/internal/export"
	"bookload/internal/harness"
	"bookload/internal/runner"
	"bookload/internal/storage"
	"bookload/internal/tui/live"
	"bookload/internal/tui/styles"
	"bookload/internal/tui/views"
)

type ClearStatusMsg struct{}

func clearStatusCmd() tea.Cmd {
	return tea.Tick(3*time.Second, func(_ time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}

type ViewID int

const (
	ViewLive ViewID = iota
	ViewReport
	ViewHistory
)

type StatsMsg runner.StatsSnapshot

// RunDoneMsg carries the finished run.
type RunDoneMsg struct {
	Result harness.Result
}

type Model struct {
	Harness *harness.Harness
	Store   storage.Store
	Updates runner.StatsUpdateChan
	Logger  *zap.Logger

	Users  int
	Budget time.Duration

	RunActive bool
	RunCtx    context.Context
	RunCancel context.CancelFunc
	Result    *harness.Result

	Width  int
	Height int

	CurrentView ViewID
	MenuItems   []string

	LiveView    live.Model
	ReportView  views.ReportView
	HistoryView views.HistoryView

	StatusMsg string
}

// NewModel prepares a run of users virtual users for budget. The run
// starts with Init. h must have been built with WithUpdates(updates).
func NewModel(ctx context.Context, h *harness.Harness, updates runner.StatsUpdateChan, store storage.Store, users int, budget time.Duration) Model {
	runCtx, cancel := context.WithCancel(ctx)
	return Model{
		Harness:     h,
		Store:       store,
		Updates:     updates,
		Logger:      zap.NewNop(),
		Users:       users,
		Budget:      budget,
		RunActive:   true,
		RunCtx:      runCtx,
		RunCancel:   cancel,
		CurrentView: ViewLive,
		MenuItems:   []string{"[1] Live", "[2] Report", "[3] History"},
		LiveView:    live.NewModel(budget),
		ReportView:  views.NewReportView(),
		HistoryView: views.NewHistoryView(store),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.startRun(),
		waitForUpdate(m.Updates),
	)
}

func (m Model) startRun() tea.Cmd {
	h, ctx, users, budget := m.Harness, m.RunCtx, m.Users, m.Budget
	return func() tea.Msg {
		return RunDoneMsg{Result: h.LoadTest(ctx, users, budget)}
	}
}

func waitForUpdate(sub runner.StatsUpdateChan) tea.Cmd {
	return func() tea.Msg {
		return StatsMsg(<-sub)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case ClearStatusMsg:
		m.StatusMsg = ""
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.RunCancel()
			return m, tea.Quit

		case "1":
			m.CurrentView = ViewLive
			return m, nil
		case "2":
			m.CurrentView = ViewReport
			return m, nil
		case "3":
			m.HistoryView.Refresh()
			m.CurrentView = ViewHistory
			return m, nil

		case "ctrl+right":
			m.CurrentView++
			if m.CurrentView > ViewHistory {
				m.CurrentView = ViewLive
			}
			return m, nil
		case "ctrl+left":
			m.CurrentView--
			if m.CurrentView < ViewLive {
				m.CurrentView = ViewHistory
			}
			return m, nil

		case "ctrl+s":
			if m.RunActive {
				m.RunCancel()
				m.StatusMsg = "Stopping run..."
				return m, clearStatusCmd()
			}
			return m, nil

		case "ctrl+p":
			if m.Result == nil {
				m.StatusMsg = "No results to export yet."
				return m, clearStatusCmd()
			}
			base := fmt.Sprintf("bookload_report_%s", time.Now().Format("20060102-150405"))
			files, err := export.ExportAll(base, m.Result.Outcome, m.Result.Report)
			if err != nil {
				m.StatusMsg = fmt.Sprintf("Export Failed: %v", err)
			} else {
				m.StatusMsg = fmt.Sprintf("Exported to %s", strings.Join(files, ", "))
			}
			return m, clearStatusCmd()
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		content := tea.WindowSizeMsg{Width: msg.Width, Height: m.Height - 7}

		var c tea.Cmd
		m.LiveView, c = m.LiveView.Update(content)
		cmds = append(cmds, c)
		m.ReportView, _ = m.ReportView.Update(content)
		m.HistoryView, _ = m.HistoryView.Update(content)
		return m, tea.Batch(cmds...)

	case StatsMsg:
		var c tea.Cmd
		m.LiveView, c = m.LiveView.Update(runner.StatsSnapshot(msg))
		cmds = append(cmds, c)
		if m.RunActive {
			cmds = append(cmds, waitForUpdate(m.Updates))
		}
		return m, tea.Batch(cmds...)

	case RunDoneMsg:
		res := msg.Result
		m.Result = &res
		m.RunActive = false
		m.ReportView.SetReport(res.Report)
		m.saveHistory()
		m.CurrentView = ViewReport
		return m, clearStatusCmd()
	}

	// Everything else goes to the active view (progress frames, table keys,
	// viewport scrolling).
	var cmd tea.Cmd
	switch m.CurrentView {
	case ViewLive:
		m.LiveView, cmd = m.LiveView.Update(msg)
	case ViewReport:
		m.ReportView, cmd = m.ReportView.Update(msg)
	case ViewHistory:
		m.HistoryView, cmd = m.HistoryView.Update(msg)
	}
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) saveHistory() {
	if m.Store == nil || m.Result == nil {
		return
	}
	item := storage.NewHistoryItem(m.Result.Outcome.Config, m.Result.Report)
	if err := m.Store.Save(context.Background(), item); err != nil {
		m.Logger.Warn("history save failed", zap.Error(err))
		m.StatusMsg = fmt.Sprintf("Error saving history: %v", err)
		return
	}
	m.StatusMsg = "Run finished. History saved."
	m.HistoryView.Refresh()
}

func (m Model) View() string {
	if m.Width == 0 {
		return "Loading..."
	}

	nav := strings.Builder{}
	for i, item := range m.MenuItems {
		if ViewID(i) == m.CurrentView {
			nav.WriteString(styles.TabActive.Render(item))
		} else {
			nav.WriteString(styles.TabBase.Render(item))
		}
	}
	navBar := styles.FooterBase.Width(m.Width).Render(nav.String())

	contentStr := ""
	switch m.CurrentView {
	case ViewLive:
		contentStr = m.LiveView.View()
	case ViewReport:
		contentStr = m.ReportView.View()
	case ViewHistory:
		contentStr = m.HistoryView.View()
	}
	content := styles.Panel.Width(m.Width - 2).Height(m.Height - 6).Render(contentStr)

	keys1 := []string{
		styles.RenderKey("1/2/3", "View"),
		styles.RenderKey("Ctrl+<->", "Cycle"),
	}
	keys2 := []string{
		styles.RenderKey("Ctrl+S", "Stop"),
		styles.RenderKey("Ctrl+P", "Export"),
		styles.RenderKey("Q", "Quit"),
	}
	helpRow1 := styles.FooterBase.Width(m.Width).Render(strings.Join(keys1, "   "))
	helpRow2 := styles.FooterBase.Width(m.Width).Render(strings.Join(keys2, "   "))
	footer := lipgloss.JoinVertical(lipgloss.Left, helpRow1, helpRow2)

	if m.StatusMsg != "" {
		status := styles.Box.BorderForeground(styles.ColorHighlight).Render(m.StatusMsg)
		return lipgloss.JoinVertical(lipgloss.Left, navBar, content, status, footer)
	}
	return lipgloss.JoinVertical(lipgloss.Left, navBar, content, footer)
}

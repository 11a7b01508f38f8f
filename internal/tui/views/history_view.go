package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"bookload/internal/storage"
	"bookload/internal/tui/styles"
)

type HistoryView struct {
	Store storage.Store
	Table table.Model

	items []storage.HistoryItem
	err   error

	Width  int
	Height int
}

func NewHistoryView(store storage.Store) HistoryView {
	columns := []table.Column{
		{Title: "Time", Width: 20},
		{Title: "Users", Width: 7},
		{Title: "Budget", Width: 8},
		{Title: "Total", Width: 8},
		{Title: "Success%", Width: 10},
		{Title: "Avg (ms)", Width: 10},
		{Title: "P95 (ms)", Width: 10},
		{Title: "Listener", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.ColorBorder).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.ColorPrimary)

	s.Selected = s.Selected.
		Foreground(styles.ColorBg).
		Background(styles.ColorPrimary).
		Bold(true)

	t.SetStyles(s)

	m := HistoryView{
		Store: store,
		Table: t,
	}
	m.Refresh()
	return m
}

// Refresh reloads the newest runs from the store.
func (m *HistoryView) Refresh() {
	if m.Store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	items, err := m.Store.List(ctx, storage.MaxItems)
	m.err = err
	if err != nil {
		return
	}
	m.items = items
	m.Table.SetRows(Rows(items))
}

// Rows renders history items as table rows, preserving their order.
func Rows(items []storage.HistoryItem) []table.Row {
	rows := make([]table.Row, len(items))
	for i, item := range items {
		success := 0.0
		if item.Summary.Total > 0 {
			success = float64(item.Summary.Success) / float64(item.Summary.Total) * 100
		}
		rows[i] = table.Row{
			item.Timestamp.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", item.Config.Users),
			item.Config.Duration.String(),
			fmt.Sprintf("%d", item.Summary.Total),
			fmt.Sprintf("%.1f", success),
			fmt.Sprintf("%.2f", item.Summary.AvgResponseMs),
			fmt.Sprintf("%.2f", item.Summary.P95ResponseMs),
			fmt.Sprintf("%d", item.Summary.ListenerUpdates),
		}
	}
	return rows
}

func (m HistoryView) Init() tea.Cmd {
	return nil
}

func (m HistoryView) Update(msg tea.Msg) (HistoryView, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Table.SetWidth(msg.Width - 4)
		m.Table.SetHeight(max(msg.Height-6, 3))

	case tea.KeyMsg:
		if msg.String() == "r" {
			m.Refresh()
		}
	}

	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m HistoryView) View() string {
	s := strings.Builder{}
	s.WriteString(styles.Title.Render("📜 Past Runs"))
	s.WriteString("\n\n")

	switch {
	case m.Store == nil:
		s.WriteString(styles.Subtle.Render("History is disabled."))
	case m.err != nil:
		s.WriteString(styles.Error.Render(fmt.Sprintf("Could not load history: %v", m.err)))
	case len(m.Table.Rows()) == 0:
		s.WriteString(styles.Subtle.Render("No history found.\nRun a test to generate data."))
	default:
		s.WriteString(styles.Box.Render(m.Table.View()))
	}
	s.WriteString("\n\n")
	s.WriteString(styles.Subtle.Render("[r] Refresh  [↑/↓] Select"))
	return s.String()
}

func (m HistoryView) GetSelectedItem() *storage.HistoryItem {
	idx := m.Table.Cursor()
	if idx >= 0 && idx < len(m.items) {
		item := m.items[idx]
		return &item
	}
	return nil
}

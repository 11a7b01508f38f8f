package views

import (
	"bytes"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"bookload/internal/report"
	"bookload/internal/tui/styles"
)

// ReportView shows the rendered report of the last finished run.
type ReportView struct {
	Viewport viewport.Model
	Report   *report.Report

	Width  int
	Height int
}

func NewReportView() ReportView {
	return ReportView{Viewport: viewport.New(80, 20)}
}

func (m *ReportView) SetReport(rep report.Report) {
	m.Report = &rep

	var buf bytes.Buffer
	if err := rep.Render(&buf); err != nil {
		buf.WriteString("\n" + err.Error())
	}
	m.Viewport.SetContent(buf.String())
	m.Viewport.GotoTop()
}

func (m ReportView) Update(msg tea.Msg) (ReportView, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.Width = msg.Width
		m.Height = msg.Height
		m.Viewport.Width = max(msg.Width-4, 10)
		m.Viewport.Height = max(msg.Height-4, 3)
		return m, nil
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

func (m ReportView) View() string {
	s := strings.Builder{}
	s.WriteString(styles.Title.Render("📊 Report"))
	s.WriteString("\n\n")
	if m.Report == nil {
		s.WriteString(styles.Subtle.Render("The report appears here once the run finishes."))
		return s.String()
	}
	s.WriteString(m.Viewport.View())
	return s.String()
}

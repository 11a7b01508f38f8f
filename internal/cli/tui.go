package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"bookload/internal/runner"
	"bookload/internal/tui/app"
)

// RunTUI executes one load test behind the live dashboard. The report is
// printed and the outputs are handled once the program exits.
func RunTUI(ctx context.Context, opts Options) error {
	opts = opts.withDefaults()
	cfg := opts.Config

	// Log lines on stderr would tear the alternate screen.
	quiet := opts
	quiet.Logger = zap.NewNop()

	updates := make(runner.StatsUpdateChan, 100)
	h, err := newHarness(quiet, updates)
	if err != nil {
		return err
	}

	m := app.NewModel(ctx, h, updates, opts.Store, cfg.Users, cfg.Duration)
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	m.RunCancel()
	if err != nil && final == nil {
		return fmt.Errorf("running tui: %w", err)
	}

	fm, ok := final.(app.Model)
	if !ok || fm.Result == nil {
		fmt.Fprintln(opts.Out, "Run cancelled before a report was produced.")
		return nil
	}
	if err := fm.Result.Report.Render(opts.Out); err != nil {
		return err
	}

	// The dashboard already saved the run to history.
	rest := opts
	rest.Store = nil
	handleOutputs(ctx, opts.Out, opts.Logger, cfg, rest, *fm.Result)
	return nil
}

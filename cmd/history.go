package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"bookload/internal/storage"
	"bookload/internal/tui/views"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx := context.Background()
		store, err := storage.Open(ctx, cfg.History.Path, cfg.History.DSN)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer store.Close()

		if interactive, _ := cmd.Flags().GetBool("tui"); interactive {
			_, err := tea.NewProgram(historyModel{views.NewHistoryView(store)}, tea.WithAltScreen()).Run()
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		items, err := store.List(ctx, limit)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No history found.")
			return nil
		}

		rows := views.Rows(items)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTIME\tUSERS\tBUDGET\tTOTAL\tSUCCESS%\tAVG MS\tP95 MS\tLISTENER")
		for i, item := range items {
			r := rows[i]
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				item.ID, r[0], r[1], r[2], r[3], r[4], r[5], r[6], r[7])
		}
		return w.Flush()
	},
}

// historyModel hosts the history table on its own.
type historyModel struct {
	view views.HistoryView
}

func (m historyModel) Init() tea.Cmd { return nil }

func (m historyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

func (m historyModel) View() string {
	return m.view.View() + "\n[q] Quit"
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of runs to list")
	historyCmd.Flags().Bool("tui", false, "Browse history in a table")
}

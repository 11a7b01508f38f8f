package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bookload/internal/cli"
	"bookload/internal/config"
)

var runKeys = map[string]string{
	"users":            "users",
	"duration":         "duration",
	"ops":              "operations_per_user",
	"delay":            "operation_delay",
	"listener-window":  "listener_window",
	"dashboard-probes": "dashboard_probes",
	"dashboard-role":   "dashboard_role",
	"approvals":        "approvals",
	"seed":             "seed",
	"target":           "target",
	"timeout":          "request_timeout",
	"purposes":         "purposes_file",
	"out":              "output.prefix",
	"history":          "history.enabled",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a configurable load test",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startRun(cmd, nil)
	},
}

var quickCmd = &cobra.Command{
	Use:   "quick",
	Short: "Quick load test: 10 users, 30 seconds",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startRun(cmd, config.Quick)
	},
}

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Stress test: 50 users, 2 minutes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startRun(cmd, config.Stress)
	},
}

func init() {
	addLoadFlags(runCmd)
	runCmd.Flags().IntP("users", "U", 10, "Number of virtual users")
	runCmd.Flags().DurationP("duration", "d", 30*time.Second, "Overall duration budget (e.g. 30s)")

	addLoadFlags(quickCmd)
	addLoadFlags(stressCmd)
}

func addLoadFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("target", "t", "", "Booking backend base URL (empty runs on fallback ids)")
	cmd.Flags().Int("ops", 10, "Submissions per virtual user")
	cmd.Flags().Duration("delay", time.Second, "Delay between submissions (e.g. 1s)")
	cmd.Flags().Duration("listener-window", 5*time.Second, "Listener probe window")
	cmd.Flags().Int("dashboard-probes", 5, "Maximum dashboard probes")
	cmd.Flags().String("dashboard-role", "employee", "Dashboard role (employee, admin, driver)")
	cmd.Flags().Int("approvals", 0, "Approvals to simulate over submitted bookings")
	cmd.Flags().Uint64("seed", 0, "Generator seed (0 is time based)")
	cmd.Flags().Duration("timeout", 10*time.Second, "Request timeout")
	cmd.Flags().String("purposes", "", "File with one trip purpose per line")
	cmd.Flags().StringP("out", "o", "", "Output filename prefix for CSV/JSON/YAML reports")
	cmd.Flags().Bool("history", true, "Save the run to history")
	cmd.Flags().Bool("tui", false, "Show the live dashboard")
}

func startRun(cmd *cobra.Command, preset func(config.Config) config.Config) error {
	cfg, logger, err := loadConfig(cmd, runKeys)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if preset != nil {
		c := preset(*cfg)
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = &c
	}

	interactive, _ := cmd.Flags().GetBool("tui")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.Start(ctx, cfg, logger, os.Stdout, interactive)
}

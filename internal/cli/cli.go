// Package cli drives a headless load run: progress line, report, exports
// and history.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"bookload/internal/booking"
	"bookload/internal/capability"
	"bookload/internal/config"
	"bookload/internal/export"
	"bookload/internal/harness"
	"bookload/internal/runner"
	"bookload/internal/stats"
	"bookload/internal/storage"
)

// Publisher receives per-operation results, e.g. a Kafka sink.
type Publisher interface {
	Publish(runID string, results []runner.OperationResult) error
}

// Uploader stores the JSON document of a run, e.g. in S3.
type Uploader interface {
	Upload(ctx context.Context, doc export.Document) (string, error)
}

type Options struct {
	Config   *config.Config
	Caps     capability.Set
	Logger   *zap.Logger
	Out      io.Writer
	Memory   stats.MemorySource
	Store    storage.Store
	Kafka    Publisher
	Uploader Uploader
}

// Run executes one load test as described by opts.Config.
func Run(ctx context.Context, opts Options) (harness.Result, error) {
	opts = opts.withDefaults()
	cfg := opts.Config
	out := opts.Out

	updates := make(runner.StatsUpdateChan, 100)
	h, err := newHarness(opts, updates)
	if err != nil {
		return harness.Result{}, err
	}

	printHeader(out, cfg)

	done := make(chan harness.Result, 1)
	go func() {
		done <- h.LoadTest(ctx, cfg.Users, cfg.Duration)
	}()

	var res harness.Result
	monitor(out, cfg.Duration, updates, done, &res)

	if err := res.Report.Render(out); err != nil {
		return res, err
	}
	handleOutputs(ctx, out, opts.Logger, cfg, opts, res)
	return res, nil
}

func (o Options) withDefaults() Options {
	if o.Out == nil {
		o.Out = io.Discard
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Memory == nil {
		o.Memory = stats.RuntimeMemory{}
	}
	return o
}

func newHarness(opts Options, updates runner.StatsUpdateChan) (*harness.Harness, error) {
	cfg := opts.Config

	var purposes []string
	if cfg.PurposesFile != "" {
		p, err := booking.LoadPurposes(cfg.PurposesFile)
		if err != nil {
			return nil, err
		}
		purposes = p
	}

	return harness.New(opts.Caps, cfg.RunnerConfig(),
		harness.WithThresholds(cfg.Thresholds),
		harness.WithLogger(opts.Logger),
		harness.WithMemory(opts.Memory),
		harness.WithSeed(cfg.Seed),
		harness.WithPurposes(purposes),
		harness.WithUpdates(updates),
	), nil
}

// monitor redraws the progress line until the run result arrives.
func monitor(out io.Writer, budget time.Duration, updates runner.StatsUpdateChan, done <-chan harness.Result, res *harness.Result) {
	for {
		select {
		case s := <-updates:
			fmt.Fprint(out, progressLine(s, budget))
		case r := <-done:
			*res = r
			fmt.Fprintln(out)
			return
		}
	}
}

func progressLine(s runner.StatsSnapshot, budget time.Duration) string {
	pct := 0.0
	if budget > 0 {
		pct = s.Elapsed.Seconds() / budget.Seconds()
	}
	if pct > 1.0 || (s.Phase != runner.PhaseUsers && s.Phase != runner.PhaseIdle) {
		pct = 1.0
	}

	if s.Phase == runner.PhaseDraining {
		return fmt.Sprintf("\r%s %3.0f%% | %s/%s | Draining: %d users...                ",
			progressBar(1.0, 20), 100.0,
			s.Elapsed.Round(time.Second), budget,
			s.ActiveUsers)
	}
	return fmt.Sprintf("\r%s %3.0f%% | %s/%s | Users: %3d | OK: %d | Err: %d | Avg: %.1fms | %s",
		progressBar(pct, 20), pct*100,
		s.Elapsed.Round(time.Second), budget,
		s.ActiveUsers,
		s.Success,
		s.Fail,
		s.AvgResponseMs,
		s.Phase,
	)
}

func printHeader(out io.Writer, cfg *config.Config) {
	target := cfg.Target
	if target == "" {
		target = "(none, fallback ids)"
	}
	fmt.Fprintf(out, "\n🚀 STARTING BOOKLOAD LOAD TEST\n")
	fmt.Fprintf(out, "======================================================================\n")
	fmt.Fprintf(out, "Target       : %s\n", target)
	fmt.Fprintf(out, "Users        : %d\n", cfg.Users)
	fmt.Fprintf(out, "Budget       : %s\n", cfg.Duration)
	fmt.Fprintf(out, "Ops / User   : %d (every %s)\n", cfg.OperationsPerUser, cfg.OperationDelay)
	fmt.Fprintf(out, "Listener     : %s window\n", cfg.ListenerWindow)
	fmt.Fprintf(out, "Dashboards   : up to %d (%s)\n", cfg.DashboardProbes, cfg.DashboardRole)
	fmt.Fprintf(out, "======================================================================\n\n")
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

// handleOutputs runs every configured export. Failures are reported and
// never abort the others.
func handleOutputs(ctx context.Context, out io.Writer, logger *zap.Logger, cfg *config.Config, opts Options, res harness.Result) {
	runID := res.Outcome.RunID

	if cfg.Output.Prefix != "" {
		fmt.Fprintf(out, "\n💾 Generating reports with prefix: %s\n", cfg.Output.Prefix)
		files, err := export.ExportAll(cfg.Output.Prefix, res.Outcome, res.Report)
		if err != nil {
			fmt.Fprintf(out, "❌ Export failed: %v\n", err)
		} else {
			fmt.Fprintf(out, "✅ Reports saved to %s\n", strings.Join(files, ", "))
		}
	}

	if opts.Kafka != nil {
		results := res.Outcome.Results()
		if err := opts.Kafka.Publish(runID, results); err != nil {
			logger.Warn("kafka publish failed", zap.Error(err))
			fmt.Fprintf(out, "❌ Kafka publish failed: %v\n", err)
		} else {
			fmt.Fprintf(out, "📨 Published %d results to %s\n", len(results), cfg.Output.Kafka.Topic)
		}
	}

	if opts.Uploader != nil {
		key, err := opts.Uploader.Upload(ctx, export.NewDocument(res.Outcome, res.Report))
		if err != nil {
			logger.Warn("s3 upload failed", zap.Error(err))
			fmt.Fprintf(out, "❌ S3 upload failed: %v\n", err)
		} else {
			fmt.Fprintf(out, "☁️  Uploaded report to s3://%s/%s\n", cfg.Output.S3.Bucket, key)
		}
	}

	if opts.Store != nil {
		item := storage.NewHistoryItem(res.Outcome.Config, res.Report)
		if err := opts.Store.Save(ctx, item); err != nil {
			logger.Warn("history save failed", zap.Error(err))
		} else {
			logger.Debug("run saved to history", zap.String("id", item.ID))
		}
	}
}

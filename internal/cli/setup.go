package cli

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"bookload/internal/capability"
	"bookload/internal/config"
	"bookload/internal/export"
	"bookload/internal/storage"
)

// Capabilities targets cfg.Target over HTTP, or returns an empty set so
// every operation takes its fallback path.
func Capabilities(cfg *config.Config, logger *zap.Logger) (capability.Set, error) {
	if cfg.Target == "" {
		return capability.Set{}, nil
	}
	return capability.NewHTTP(cfg.Target, cfg.RequestTimeout, logger)
}

// Setup builds Options from cfg. The returned closer releases every sink.
func Setup(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer) (Options, func(), error) {
	opts := Options{Config: cfg, Logger: logger, Out: out}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	caps, err := Capabilities(cfg, logger)
	if err != nil {
		return opts, closeAll, err
	}
	opts.Caps = caps

	if len(cfg.Output.Kafka.Brokers) > 0 {
		sink, err := export.NewKafkaSink(cfg.Output.Kafka.Brokers, cfg.Output.Kafka.Topic)
		if err != nil {
			closeAll()
			return opts, func() {}, err
		}
		opts.Kafka = sink
		closers = append(closers, func() { _ = sink.Close() })
	}

	if cfg.Output.S3.Bucket != "" {
		up, err := export.NewS3Uploader(ctx, cfg.Output.S3.Region, cfg.Output.S3.Bucket, cfg.Output.S3.Prefix)
		if err != nil {
			closeAll()
			return opts, func() {}, err
		}
		opts.Uploader = up
	}

	if cfg.History.Enabled {
		store, err := storage.Open(ctx, cfg.History.Path, cfg.History.DSN)
		if err != nil {
			// History is best effort.
			logger.Warn("history disabled", zap.Error(err))
		} else {
			opts.Store = store
			closers = append(closers, func() { _ = store.Close() })
		}
	}

	return opts, closeAll, nil
}

// Start is the entry point of the run, quick and stress commands. With
// interactive set the run is shown on the live dashboard.
func Start(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer, interactive bool) error {
	opts, closeAll, err := Setup(ctx, cfg, logger, out)
	defer closeAll()
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	if interactive {
		return RunTUI(ctx, opts)
	}
	_, err = Run(ctx, opts)
	return err
}

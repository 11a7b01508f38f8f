package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bookload/internal/mock"
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Run the mock booking backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		defer logger.Sync()

		addr, _ := cmd.Flags().GetString("addr")
		latency, _ := cmd.Flags().GetDuration("latency")
		failureRate, _ := cmd.Flags().GetFloat64("failure-rate")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := mock.NewServer(mock.Config{
			Addr:        addr,
			Latency:     latency,
			FailureRate: failureRate,
			Seed:        viper.GetUint64("seed"),
			Logger:      logger,
		})
		return srv.ListenAndServe(ctx, nil)
	},
}

func init() {
	mockCmd.Flags().StringP("addr", "a", "127.0.0.1:8080", "Listen address")
	mockCmd.Flags().Duration("latency", 0, "Upper bound of random latency added to API calls")
	mockCmd.Flags().Float64("failure-rate", 0, "Fraction (0-1) of API calls answered with a 500")
}

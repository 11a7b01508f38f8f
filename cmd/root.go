package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"bookload/internal/banner"
	"bookload/internal/config"
	"bookload/internal/logging"
)

var (
	cfgFile string
	cfgErr  error
)

var rootCmd = &cobra.Command{
	Use:   "bookload",
	Short: "bookload - Booking Platform Load Harness",
	Long: `
bookload drives concurrent virtual users against a vehicle booking
platform and reports throughput, latency, listener activity and memory.

Commands:
  run      configurable load test (add --tui for the live dashboard)
  quick    10 users, 30 seconds
  stress   50 users, 2 minutes
  mock     local mock booking backend to aim runs at
  history  past runs`,
	SilenceUsage: true,
}

func Execute() {
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.bookload.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console, json)")

	rootCmd.AddCommand(runCmd, quickCmd, stressCmd, mockCmd, historyCmd)
}

func initConfig() {
	cfgErr = config.Init(viper.GetViper(), cfgFile)
}

// bindFlags maps the given flags of cmd onto viper keys. Binding happens
// per command since several commands share a key.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

var persistentKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
}

// loadConfig resolves the layered configuration and builds the logger.
func loadConfig(cmd *cobra.Command, keys map[string]string) (*config.Config, *zap.Logger, error) {
	if cfgErr != nil {
		return nil, nil, cfgErr
	}
	if err := bindFlags(cmd, persistentKeys); err != nil {
		return nil, nil, err
	}
	if err := bindFlags(cmd, keys); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// Package config loads harness settings from flags, environment, a YAML
// file and defaults through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"bookload/internal/report"
	"bookload/internal/runner"
)

// EnvPrefix namespaces environment overrides, e.g. BOOKLOAD_USERS.
const EnvPrefix = "BOOKLOAD"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Users              int           `mapstructure:"users" validate:"gte=0,ltefield=MaxConcurrentUsers"`
	MaxConcurrentUsers int           `mapstructure:"max_concurrent_users" validate:"gt=0"`
	Duration           time.Duration `mapstructure:"duration" validate:"gt=0"`
	OperationsPerUser  int           `mapstructure:"operations_per_user" validate:"gte=0"`
	OperationDelay     time.Duration `mapstructure:"operation_delay" validate:"gte=0"`
	ListenerWindow     time.Duration `mapstructure:"listener_window" validate:"gt=0"`
	DashboardProbes    int           `mapstructure:"dashboard_probes" validate:"gte=0"`
	DashboardRole      string        `mapstructure:"dashboard_role" validate:"oneof=employee admin driver"`
	Approvals          int           `mapstructure:"approvals" validate:"gte=0"`
	DrainTimeout       time.Duration `mapstructure:"drain_timeout" validate:"gt=0"`
	Seed               uint64        `mapstructure:"seed"`

	Target         string        `mapstructure:"target" validate:"omitempty,url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	PurposesFile   string        `mapstructure:"purposes_file" validate:"omitempty,file"`

	Thresholds report.Thresholds `mapstructure:"thresholds"`
	Output     Output            `mapstructure:"output"`
	History    History           `mapstructure:"history"`
	Log        Log               `mapstructure:"log"`
}

type Output struct {
	Prefix string `mapstructure:"prefix"`
	Kafka  Kafka  `mapstructure:"kafka"`
	S3     S3     `mapstructure:"s3"`
}

type Kafka struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic" validate:"required_with=Brokers"`
}

type S3 struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
	Region string `mapstructure:"region" validate:"required_with=Bucket"`
}

type History struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	// DSN selects the PostgreSQL store instead of the bbolt file.
	DSN string `mapstructure:"dsn"`
}

type Log struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".bookload", "history.db")
	}
	return filepath.Join(home, ".bookload", "history.db")
}

// SetDefaults registers every key so environment overrides resolve.
func SetDefaults(v *viper.Viper) {
	th := report.DefaultThresholds()

	v.SetDefault("users", 10)
	v.SetDefault("max_concurrent_users", 50)
	v.SetDefault("duration", 30*time.Second)
	v.SetDefault("operations_per_user", 10)
	v.SetDefault("operation_delay", time.Second)
	v.SetDefault("listener_window", 5*time.Second)
	v.SetDefault("dashboard_probes", 5)
	v.SetDefault("dashboard_role", string(runner.RoleEmployee))
	v.SetDefault("approvals", 0)
	v.SetDefault("drain_timeout", 5*time.Second)
	v.SetDefault("seed", 0)
	v.SetDefault("target", "")
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("purposes_file", "")

	v.SetDefault("thresholds.avg_response", th.AvgResponse)
	v.SetDefault("thresholds.failure_rate", th.FailureRate)
	v.SetDefault("thresholds.memory_growth_mb", th.MemoryGrowthMB)
	v.SetDefault("thresholds.listener_rate", th.ListenerRate)

	v.SetDefault("output.prefix", "")
	v.SetDefault("output.kafka.brokers", []string{})
	v.SetDefault("output.kafka.topic", "bookload.results")
	v.SetDefault("output.s3.bucket", "")
	v.SetDefault("output.s3.prefix", "bookload/")
	v.SetDefault("output.s3.region", "us-east-1")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", defaultHistoryPath())
	v.SetDefault("history.dsn", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Init wires defaults and environment lookup into v and reads the config
// file. A missing default file is not an error; a missing explicit one is.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
			v.SetConfigType("yaml")
			v.SetConfigName(".bookload")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecoderConfigOption(func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Quick is the 10 user, 30 second preset.
func Quick(c Config) Config {
	c.Users = 10
	c.Duration = 30 * time.Second
	return c
}

// Stress is the 50 user, 2 minute preset.
func Stress(c Config) Config {
	c.Users = 50
	c.Duration = 120 * time.Second
	if c.MaxConcurrentUsers < c.Users {
		c.MaxConcurrentUsers = c.Users
	}
	return c
}

// RunnerConfig is the orchestrator's slice of the settings.
func (c *Config) RunnerConfig() runner.Config {
	return runner.Config{
		Users:             c.Users,
		Duration:          c.Duration,
		OperationsPerUser: c.OperationsPerUser,
		OperationDelay:    c.OperationDelay,
		ListenerWindow:    c.ListenerWindow,
		DashboardProbes:   c.DashboardProbes,
		DashboardRole:     runner.Role(c.DashboardRole),
		Approvals:         c.Approvals,
		DrainTimeout:      c.DrainTimeout,
	}
}

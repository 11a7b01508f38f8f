package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookload/internal/runner"
)

func load(t *testing.T, cfgFile string) (*Config, error) {
	t.Helper()
	v := viper.New()
	require.NoError(t, Init(v, cfgFile))
	return Load(v)
}

func TestDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := load(t, "")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Users)
	assert.Equal(t, 30*time.Second, cfg.Duration)
	assert.Equal(t, 10, cfg.OperationsPerUser)
	assert.Equal(t, time.Second, cfg.OperationDelay)
	assert.Equal(t, 5*time.Second, cfg.ListenerWindow)
	assert.Equal(t, 5, cfg.DashboardProbes)
	assert.Equal(t, "employee", cfg.DashboardRole)
	assert.Equal(t, time.Second, cfg.Thresholds.AvgResponse)
	assert.Equal(t, 10.0, cfg.Thresholds.FailureRate)
	assert.Equal(t, "bookload.results", cfg.Output.Kafka.Topic)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BOOKLOAD_USERS", "25")
	t.Setenv("BOOKLOAD_DURATION", "45s")
	t.Setenv("BOOKLOAD_OUTPUT_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := load(t, "")
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Users)
	assert.Equal(t, 45*time.Second, cfg.Duration)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Output.Kafka.Brokers)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookload.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users: 40
duration: 2m
operation_delay: 250ms
dashboard_role: admin
thresholds:
  avg_response: 500ms
output:
  s3:
    bucket: reports
`), 0o644))

	cfg, err := load(t, path)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Users)
	assert.Equal(t, 2*time.Minute, cfg.Duration)
	assert.Equal(t, 250*time.Millisecond, cfg.OperationDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.Thresholds.AvgResponse)
	assert.Equal(t, "reports", cfg.Output.S3.Bucket)
	assert.Equal(t, "us-east-1", cfg.Output.S3.Region)

	rc := cfg.RunnerConfig()
	assert.Equal(t, runner.RoleAdmin, rc.DashboardRole)
	assert.Equal(t, 40, rc.Users)
}

func TestMissingExplicitFile(t *testing.T) {
	v := viper.New()
	err := Init(v, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidation(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cases := map[string]map[string]string{
		"too many users": {"BOOKLOAD_USERS": "51"},
		"unknown role":   {"BOOKLOAD_DASHBOARD_ROLE": "guest"},
		"zero duration":  {"BOOKLOAD_DURATION": "0s"},
		"bad log level":  {"BOOKLOAD_LOG_LEVEL": "loud"},
		"bad target":     {"BOOKLOAD_TARGET": "not a url"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := load(t, "")
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestPresets(t *testing.T) {
	base := Config{MaxConcurrentUsers: 20}

	q := Quick(base)
	assert.Equal(t, 10, q.Users)
	assert.Equal(t, 30*time.Second, q.Duration)

	s := Stress(base)
	assert.Equal(t, 50, s.Users)
	assert.Equal(t, 120*time.Second, s.Duration)
	assert.Equal(t, 50, s.MaxConcurrentUsers)
}

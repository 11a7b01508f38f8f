package e2e

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := loadConfig(env(nil))

	assert.Equal(t, "http://127.0.0.1:4173", cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.TestTimeout)
	assert.Equal(t, 5*time.Second, cfg.AssertionTimeout)
	assert.Zero(t, cfg.Retries)
	assert.Positive(t, cfg.Workers)
	assert.True(t, cfg.Headless)
	assert.True(t, cfg.ReuseExistingServer)
	assert.Equal(t, 1280, cfg.WindowWidth)
	assert.Equal(t, 720, cfg.WindowHeight)
}

func TestLoadConfigCI(t *testing.T) {
	cfg := loadConfig(env(map[string]string{"CI": "true", "HOST": "0.0.0.0", "PORT": "9000"}))

	assert.Equal(t, "http://0.0.0.0:9000", cfg.BaseURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
	assert.Equal(t, 1, cfg.Retries)
	assert.Equal(t, 2, cfg.Workers)
	assert.False(t, cfg.ReuseExistingServer)
}

func TestLoadConfigExplicitBaseURL(t *testing.T) {
	cfg := loadConfig(env(map[string]string{
		"BOOKLOAD_E2E_BASE_URL":   "https://staging.example.com",
		"BOOKLOAD_E2E_STATIC_DIR": "dist",
		"PORT":                    "nope",
	}))

	assert.Equal(t, "https://staging.example.com", cfg.BaseURL)
	assert.Equal(t, "dist", cfg.StaticDir)
	assert.Equal(t, DefaultPort, cfg.Port)
}

func TestStartServerServesEmbeddedApp(t *testing.T) {
	cfg := loadConfig(env(map[string]string{"CI": "1"}))
	cfg.Port = 0

	srv, err := StartServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "role-selection-overlay")
}

func TestStartServerMissingStaticDir(t *testing.T) {
	cfg := loadConfig(env(map[string]string{"CI": "1"}))
	cfg.StaticDir = t.TempDir() + "/missing"

	_, err := StartServer(cfg)
	assert.Error(t, err)
}

// Package e2e drives the role-gated booking web app in headless Chrome.
package e2e

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 4173
)

// Config is the runner configuration of the browser suite.
type Config struct {
	BaseURL string
	Host    string
	Port    int

	TestTimeout      time.Duration
	AssertionTimeout time.Duration
	Retries          int
	Workers          int
	CI               bool

	Headless     bool
	WindowWidth  int
	WindowHeight int
	ChromePath   string

	ArtifactsDir string
	// StaticDir serves the app from disk instead of the embedded copy.
	StaticDir string
	// ReuseExistingServer skips starting a server when BaseURL already answers.
	ReuseExistingServer bool
}

// LoadConfig reads the suite settings from the environment.
func LoadConfig() Config {
	return loadConfig(os.Getenv)
}

func loadConfig(getenv func(string) string) Config {
	ci := getenv("CI") != ""

	cfg := Config{
		Host:                DefaultHost,
		Port:                DefaultPort,
		TestTimeout:         30 * time.Second,
		AssertionTimeout:    5 * time.Second,
		CI:                  ci,
		Headless:            getenv("BOOKLOAD_E2E_HEADED") == "",
		WindowWidth:         1280,
		WindowHeight:        720,
		ChromePath:          getenv("CHROME_BIN"),
		ArtifactsDir:        getenv("BOOKLOAD_E2E_ARTIFACTS"),
		StaticDir:           getenv("BOOKLOAD_E2E_STATIC_DIR"),
		ReuseExistingServer: !ci,
	}

	if h := getenv("HOST"); h != "" {
		cfg.Host = h
	}
	if p, err := strconv.Atoi(getenv("PORT")); err == nil && p > 0 {
		cfg.Port = p
	}

	cfg.BaseURL = getenv("BOOKLOAD_E2E_BASE_URL")
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://%s", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	}

	if ci {
		cfg.Retries = 1
		cfg.Workers = 2
	} else {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}

	if cfg.ArtifactsDir == "" {
		cfg.ArtifactsDir = filepath.Join("testdata", "artifacts")
	}
	return cfg
}

// Addr is the listen address of a server started by the suite.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

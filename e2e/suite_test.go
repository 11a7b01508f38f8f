package e2e

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
)

// suite is shared by the browser tests and set up in TestMain.
var suite struct {
	cfg   Config
	url   string
	alloc context.Context
	sem   chan struct{}
	skip  string
}

func TestMain(m *testing.M) {
	flag.Parse()
	os.Exit(runSuite(m))
}

func runSuite(m *testing.M) int {
	suite.cfg = LoadConfig()
	suite.sem = make(chan struct{}, max(suite.cfg.Workers, 1))

	if testing.Short() {
		suite.skip = "browser suite skipped in short mode"
		return m.Run()
	}
	chrome, err := FindChrome(suite.cfg)
	if err != nil {
		suite.skip = err.Error()
		return m.Run()
	}

	srv, err := StartServer(suite.cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "e2e: %v\n", err)
		return 1
	}
	defer srv.Close()
	suite.url = srv.URL

	alloc, cancel := NewAllocator(context.Background(), suite.cfg, chrome)
	defer cancel()
	suite.alloc = alloc

	return m.Run()
}

// browserTest runs body in a fresh tab, retrying up to cfg.Retries times.
// The last failure leaves a screenshot and console log behind.
func browserTest(t *testing.T, body func(p *Page) error) {
	t.Helper()
	if suite.skip != "" {
		t.Skip(suite.skip)
	}
	t.Parallel()

	suite.sem <- struct{}{}
	defer func() { <-suite.sem }()

	var err error
	for attempt := 0; attempt <= suite.cfg.Retries; attempt++ {
		p := NewPage(suite.alloc, suite.cfg)
		err = body(p)
		if err == nil {
			p.Close()
			return
		}
		t.Logf("attempt %d failed: %v", attempt+1, err)
		if attempt == suite.cfg.Retries {
			files, aerr := p.SaveArtifacts(t.Name())
			if aerr != nil {
				t.Logf("saving artifacts: %v", aerr)
			}
			for _, f := range files {
				t.Logf("artifact: %s", f)
			}
		}
		p.Close()
	}
	t.Fatal(err)
}

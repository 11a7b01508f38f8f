package e2e

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

var chromeNames = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
	"chrome",
}

var ErrNoChrome = errors.New("no chrome binary found")

// FindChrome returns the browser binary the suite will launch.
func FindChrome(cfg Config) (string, error) {
	if cfg.ChromePath != "" {
		if _, err := os.Stat(cfg.ChromePath); err != nil {
			return "", fmt.Errorf("%w: %v", ErrNoChrome, err)
		}
		return cfg.ChromePath, nil
	}
	for _, name := range chromeNames {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", ErrNoChrome
}

// NewAllocator starts the desktop Chrome profile used by every test.
func NewAllocator(ctx context.Context, cfg Config, chromePath string) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(chromePath),
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)
	return chromedp.NewExecAllocator(ctx, opts...)
}

// Page is one browser tab with its console log.
type Page struct {
	Ctx    context.Context
	cfg    Config
	mu     sync.Mutex
	logs   []string
	cancel context.CancelFunc
}

// NewPage opens a fresh tab, so session storage starts empty.
func NewPage(alloc context.Context, cfg Config) *Page {
	ctx, cancel := chromedp.NewContext(alloc)
	ctx, cancelTimeout := context.WithTimeout(ctx, cfg.TestTimeout)

	p := &Page{Ctx: ctx, cfg: cfg}
	p.cancel = func() {
		cancelTimeout()
		cancel()
	}

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			args := make([]string, 0, len(ev.Args))
			for _, arg := range ev.Args {
				args = append(args, string(arg.Value))
			}
			p.log(fmt.Sprintf("console.%s: %s", ev.Type, strings.Join(args, " ")))
		case *runtime.EventExceptionThrown:
			p.log("exception: " + ev.ExceptionDetails.Error())
		}
	})
	return p
}

func (p *Page) log(line string) {
	p.mu.Lock()
	p.logs = append(p.logs, line)
	p.mu.Unlock()
}

func (p *Page) Logs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.logs...)
}

func (p *Page) Close() {
	p.cancel()
}

// Goto opens path relative to base.
func (p *Page) Goto(base, path string) error {
	return chromedp.Run(p.Ctx, chromedp.Navigate(strings.TrimRight(base, "/")+path))
}

func (p *Page) Click(sel string) error {
	return p.within(fmt.Sprintf("click %s", sel), chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible))
}

// ExpectVisible waits up to the assertion timeout for sel to be shown.
func (p *Page) ExpectVisible(sel string) error {
	return p.within(fmt.Sprintf("%s visible", sel), chromedp.WaitVisible(sel, chromedp.ByQuery))
}

// ExpectHidden waits up to the assertion timeout for sel to be hidden.
func (p *Page) ExpectHidden(sel string) error {
	return p.within(fmt.Sprintf("%s hidden", sel), chromedp.WaitNotVisible(sel, chromedp.ByQuery))
}

// ExpectURLSuffix polls the page URL until it ends with suffix.
func (p *Page) ExpectURLSuffix(suffix string) error {
	var ok bool
	expr := fmt.Sprintf("window.location.href.endsWith(%q)", suffix)
	err := p.within("url ends with "+suffix,
		chromedp.Poll(expr, &ok, chromedp.WithPollingInterval(50*time.Millisecond)),
	)
	if err != nil {
		var loc string
		_ = chromedp.Run(p.Ctx, chromedp.Location(&loc))
		return fmt.Errorf("%w (at %s)", err, loc)
	}
	return nil
}

func (p *Page) within(what string, action chromedp.Action) error {
	ctx, cancel := context.WithTimeout(p.Ctx, p.cfg.AssertionTimeout)
	defer cancel()
	if err := chromedp.Run(ctx, action); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

// SaveArtifacts writes a screenshot and the console log of the page.
func (p *Page) SaveArtifacts(name string) ([]string, error) {
	if err := os.MkdirAll(p.cfg.ArtifactsDir, 0o755); err != nil {
		return nil, err
	}
	base := filepath.Join(p.cfg.ArtifactsDir, sanitize(name))
	var files []string

	var buf []byte
	ctx, cancel := context.WithTimeout(p.Ctx, p.cfg.AssertionTimeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&buf, 90)); err == nil {
		if err := os.WriteFile(base+".png", buf, 0o644); err != nil {
			return files, err
		}
		files = append(files, base+".png")
	}

	logs := strings.Join(p.Logs(), "\n")
	if err := os.WriteFile(base+".console.log", []byte(logs), 0o644); err != nil {
		return files, err
	}
	return append(files, base+".console.log"), nil
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', ':':
			return '_'
		}
		return r
	}, name)
}

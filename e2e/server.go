package e2e

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"time"

	"bookload/internal/webapp"
)

// Server is the static server hosting the web app for the suite.
type Server struct {
	URL     string
	srv     *http.Server
	started bool
}

// StartServer serves the app at cfg.Addr, or reuses a server already
// answering at cfg.BaseURL when cfg allows it.
func StartServer(cfg Config) (*Server, error) {
	if cfg.ReuseExistingServer && reachable(cfg.BaseURL) {
		return &Server{URL: cfg.BaseURL}, nil
	}

	root, err := siteRoot(cfg.StaticDir)
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", cfg.Addr(), err)
	}

	srv := &http.Server{
		Handler:           http.FileServer(http.FS(root)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "e2e server: %v\n", err)
		}
	}()

	return &Server{URL: "http://" + ln.Addr().String(), srv: srv, started: true}, nil
}

func siteRoot(dir string) (fs.FS, error) {
	if dir == "" {
		return webapp.FS(), nil
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("static dir: %w", err)
	}
	return os.DirFS(dir), nil
}

func reachable(url string) bool {
	client := http.Client{Timeout: time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// Close stops the server if the suite started it.
func (s *Server) Close() error {
	if !s.started {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

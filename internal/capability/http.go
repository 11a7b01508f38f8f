package capability

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"bookload/internal/booking"
)

// HTTPClient talks to a booking backend exposing the mock server's API.
type HTTPClient struct {
	base   *url.URL
	client *http.Client
	logger *zap.Logger
}

// NewHTTP returns a capability Set backed by the REST + WebSocket API at
// baseURL.
func NewHTTP(baseURL string, timeout time.Duration, logger *zap.Logger) (Set, error) {
	c, err := NewHTTPClient(baseURL, timeout, logger)
	if err != nil {
		return Set{}, err
	}
	return c.Set(), nil
}

func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse target url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported target scheme %q", u.Scheme)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxConnsPerHost = 2000
	t.MaxIdleConnsPerHost = 2000
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	return &HTTPClient{
		base:   u,
		client: &http.Client{Timeout: timeout, Transport: t},
		logger: logger,
	}, nil
}

func (c *HTTPClient) Set() Set {
	return Set{
		CreateBooking: c.CreateBooking,
		UpdateBooking: c.UpdateBooking,
		PopulateEmployeeDashboard: func(ctx context.Context, userID string) error {
			return c.PopulateDashboard(ctx, "employee", userID)
		},
		PopulateAdminDashboard: func(ctx context.Context) error {
			return c.PopulateDashboard(ctx, "admin", "")
		},
		PopulateDriverDashboard: func(ctx context.Context, userID string) error {
			return c.PopulateDashboard(ctx, "driver", userID)
		},
		Activity: &wsActivity{url: c.wsURL("/ws/activity"), logger: c.logger},
	}
}

type createResponse struct {
	ID string `json:"id"`
}

func (c *HTTPClient) CreateBooking(ctx context.Context, b booking.Booking) (string, error) {
	var out createResponse
	if err := c.do(ctx, http.MethodPost, "/api/bookings", b, &out); err != nil {
		return "", fmt.Errorf("create booking: %w", err)
	}
	if out.ID == "" {
		return "", errors.New("create booking: empty id in response")
	}
	return out.ID, nil
}

func (c *HTTPClient) UpdateBooking(ctx context.Context, id string, patch booking.Patch) error {
	if err := c.do(ctx, http.MethodPatch, "/api/bookings/"+url.PathEscape(id), patch, nil); err != nil {
		return fmt.Errorf("update booking %s: %w", id, err)
	}
	return nil
}

func (c *HTTPClient) PopulateDashboard(ctx context.Context, role, userID string) error {
	path := "/api/dashboards/" + url.PathEscape(role)
	if userID != "" {
		path += "?user=" + url.QueryEscape(userID)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, nil); err != nil {
		return fmt.Errorf("populate %s dashboard: %w", role, err)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *HTTPClient) wsURL(path string) string {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

// wsActivity streams activity events from a WebSocket endpoint.
type wsActivity struct {
	url    string
	logger *zap.Logger
}

func (a *wsActivity) Subscribe(ctx context.Context, handler func(Event)) (func(), error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.url, nil)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", a.url, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var e Event
			if err := conn.ReadJSON(&e); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !errors.Is(err, websocket.ErrCloseSent) {
					a.logger.Debug("activity stream closed", zap.Error(err))
				}
				return
			}
			handler(e)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
			<-done
		})
	}, nil
}

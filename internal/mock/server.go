// Package mock is an in-memory booking backend used as a load target and
// as the host of the embedded web app.
package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/go-playground/validator/v10"
	"github.com/lucsky/cuid"
	"go.uber.org/zap"

	"bookload/internal/booking"
	"bookload/internal/capability"
	"bookload/internal/webapp"
)

type Config struct {
	Addr string
	// Latency is the upper bound of the random delay added to API calls.
	Latency time.Duration
	// FailureRate is the fraction (0-1) of API calls answered with a 500.
	FailureRate float64
	Seed        uint64
	Logger      *zap.Logger
}

type Server struct {
	cfg      Config
	logger   *zap.Logger
	validate *validator.Validate
	faker    *gofakeit.Faker
	activity *capability.Broadcaster
	hub      *Hub

	rngMu sync.Mutex
	rng   *rand.Rand

	mu       sync.RWMutex
	bookings map[string]*Record
}

// Record is a stored booking.
type Record struct {
	ID string `json:"id"`
	booking.Booking
	AssignedDriverID string    `json:"assignedDriverId,omitempty"`
	ApprovedAt       time.Time `json:"approvedAt,omitempty"`
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Server{
		cfg:      cfg,
		logger:   cfg.Logger,
		validate: validator.New(),
		faker:    gofakeit.NewFaker(rand.NewPCG(seed, seed^0x5eed), true),
		activity: capability.NewBroadcaster(),
		hub:      NewHub(cfg.Logger),
		rng:      rand.New(rand.NewPCG(seed, seed)),
		bookings: make(map[string]*Record),
	}
}

// Activity is the in-process feed of the events streamed on /ws/activity.
func (s *Server) Activity() *capability.Broadcaster {
	return s.activity
}

func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/bookings", s.chaos(s.createBooking))
	mux.HandleFunc("PATCH /api/bookings/{id}", s.chaos(s.updateBooking))
	mux.HandleFunc("GET /api/bookings/{id}", s.getBooking)
	mux.HandleFunc("GET /api/dashboards/{role}", s.chaos(s.dashboard))
	mux.HandleFunc("GET /ws/activity", s.hub.ServeWS)
	mux.Handle("/", webapp.Handler())
	return mux
}

// Start wires the hub to the activity feed. It returns when ctx is done.
func (s *Server) Start(ctx context.Context) {
	cancel, _ := s.activity.Subscribe(ctx, func(e capability.Event) {
		s.hub.BroadcastJSON(e)
	})
	defer cancel()
	s.hub.Run(ctx)
}

// ListenAndServe serves until ctx is cancelled. ready, when not nil,
// receives the bound address.
func (s *Server) ListenAndServe(ctx context.Context, ready chan<- string) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}

	go s.Start(ctx)

	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("mock backend listening", zap.String("addr", ln.Addr().String()))
	if ready != nil {
		ready <- ln.Addr().String()
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) float() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64()
}

// chaos adds latency jitter and injected failures in front of h.
func (s *Server) chaos(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Latency > 0 {
			jitter := time.Duration(s.float() * float64(s.cfg.Latency))
			select {
			case <-time.After(jitter):
			case <-r.Context().Done():
				return
			}
		}
		if s.cfg.FailureRate > 0 && s.float() < s.cfg.FailureRate {
			http.Error(w, "injected failure", http.StatusInternalServerError)
			return
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) publish(source, typ, id string) {
	s.activity.Publish(capability.Event{Source: source, Type: typ, BookingID: id, Timestamp: time.Now()})
}

func (s *Server) createBooking(w http.ResponseWriter, r *http.Request) {
	var b booking.Booking
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(b); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	id := "B-" + cuid.New()
	s.mu.Lock()
	s.bookings[id] = &Record{ID: id, Booking: b}
	s.mu.Unlock()

	// Both the requester's and the admin's booking lists observe a new booking.
	s.publish("EmployeeBookingsListener", "created", id)
	s.publish("AdminPendingListener", "created", id)

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) updateBooking(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var p booking.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(p); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	s.mu.Lock()
	rec, ok := s.bookings[id]
	if ok {
		rec.Status = p.Status
		rec.AssignedDriverID = p.AssignedDriverID
		rec.ApprovedAt = p.ApprovedAt
	}
	s.mu.Unlock()
	if !ok {
		http.Error(w, "booking not found", http.StatusNotFound)
		return
	}

	s.publish("AdminPendingListener", "updated", id)
	if p.AssignedDriverID != "" {
		s.publish("DriverTripsListener", "assigned", id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getBooking(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	rec, ok := s.bookings[r.PathValue("id")]
	var out Record
	if ok {
		out = *rec
	}
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "booking not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type dashboardRow struct {
	Record
	DriverName  string `json:"driverName,omitempty"`
	Destination string `json:"destination"`
}

type dashboardResponse struct {
	Role string         `json:"role"`
	User string         `json:"user,omitempty"`
	Rows []dashboardRow `json:"rows"`
}

// Bookings returns a copy of every stored booking ordered by id.
func (s *Server) Bookings() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.bookings))
	for _, r := range s.bookings {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	role := r.PathValue("role")
	user := r.URL.Query().Get("user")

	var keep func(Record) bool
	switch role {
	case "employee":
		keep = func(rec Record) bool { return rec.RequesterID == user }
	case "admin":
		keep = func(rec Record) bool { return rec.Status == booking.StatusPending }
	case "driver":
		keep = func(rec Record) bool { return rec.AssignedDriverID == user }
	default:
		http.Error(w, "unknown role "+role, http.StatusNotFound)
		return
	}
	if role != "admin" && user == "" {
		http.Error(w, "user is required", http.StatusBadRequest)
		return
	}

	resp := dashboardResponse{Role: role, User: user, Rows: []dashboardRow{}}
	for _, rec := range s.Bookings() {
		if !keep(rec) {
			continue
		}
		row := dashboardRow{Record: rec, Destination: s.faker.City()}
		if rec.AssignedDriverID != "" {
			row.DriverName = s.faker.Name()
		}
		resp.Rows = append(resp.Rows, row)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Package capability defines the optional booking entry points the harness
// drives. Every member of Set may be nil; the harness falls back per member.
package capability

import (
	"context"
	"sync"
	"time"

	"bookload/internal/booking"
)

type CreateBookingFunc func(ctx context.Context, b booking.Booking) (string, error)

type UpdateBookingFunc func(ctx context.Context, id string, patch booking.Patch) error

type PopulateUserDashboardFunc func(ctx context.Context, userID string) error

type PopulateAdminDashboardFunc func(ctx context.Context) error

// Set is the collection of capabilities supplied by the system under test.
type Set struct {
	CreateBooking             CreateBookingFunc
	UpdateBooking             UpdateBookingFunc
	PopulateEmployeeDashboard PopulateUserDashboardFunc
	PopulateAdminDashboard    PopulateAdminDashboardFunc
	PopulateDriverDashboard   PopulateUserDashboardFunc

	// Activity feeds the listener probe. Nil means no activity is observable.
	Activity ActivitySource
}

// Event is one real-time update emitted by the system under test.
type Event struct {
	Source    string    `json:"source"`
	Type      string    `json:"type"`
	BookingID string    `json:"bookingId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ActivitySource is a subscribe/notify hook for real-time updates. The
// returned cancel detaches the handler; it is safe to call more than once.
type ActivitySource interface {
	Subscribe(ctx context.Context, handler func(Event)) (cancel func(), err error)
}

// Broadcaster is an in-process ActivitySource.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[int]func(Event)
	next int
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]func(Event))}
}

func (b *Broadcaster) Subscribe(_ context.Context, handler func(Event)) (func(), error) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = handler
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}, nil
}

// Publish delivers e synchronously to every current subscriber.
func (b *Broadcaster) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

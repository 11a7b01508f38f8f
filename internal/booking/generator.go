package booking

import (
	"bufio"
	"bytes"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	maxDaysAhead  = 30
	maxHours      = 12
	maxPassengers = 50
)

// Generator builds randomized bookings. It is safe for concurrent use.
type Generator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	now      func() time.Time
	purposes []string
}

type Option func(*Generator)

// WithClock overrides the time source used for start and submission times.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithPurposes replaces the trip purpose pool. Empty pools are ignored.
func WithPurposes(purposes []string) Option {
	return func(g *Generator) {
		if len(purposes) > 0 {
			g.purposes = purposes
		}
	}
}

// NewGenerator returns a generator seeded with seed, or with the current
// time when seed is 0.
func NewGenerator(seed uint64, opts ...Option) *Generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	g := &Generator{
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now:      time.Now,
		purposes: DefaultPurposes,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a pending booking for requesterID. index is carried as the
// booking's sequence number.
func (g *Generator) Generate(requesterID string, index int) Booking {
	now := g.now()

	g.mu.Lock()
	days := g.rng.IntN(maxDaysAhead) + 1
	vehicle := VehicleTypes[g.rng.IntN(len(VehicleTypes))]
	hours := g.rng.IntN(maxHours) + 1
	passengers := g.rng.IntN(maxPassengers) + 1
	purpose := g.purposes[g.rng.IntN(len(g.purposes))]
	g.mu.Unlock()

	return Booking{
		VehicleType:   vehicle,
		StartTime:     now.AddDate(0, 0, days),
		DurationHours: hours,
		DriverOption:  DriverOptionRequest,
		Passengers:    passengers,
		TripPurpose:   purpose,
		RequesterID:   requesterID,
		Status:        StatusPending,
		SubmittedTime: now,
		Sequence:      index,
	}
}

// IntN returns a random int in [0, n).
func (g *Generator) IntN(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.IntN(n)
}

// LoadPurposes reads one trip purpose per line, skipping blanks.
func LoadPurposes(filename string) ([]string, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read purposes file '%s': %w", filename, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	var loaded []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			loaded = append(loaded, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan purposes file '%s': %w", filename, err)
	}
	if len(loaded) == 0 {
		return nil, fmt.Errorf("purposes file '%s' is empty", filename)
	}
	return loaded, nil
}

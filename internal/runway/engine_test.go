package runway

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runwayscope/runwayscope/internal/tracking"
	"github.com/runwayscope/runwayscope/pkg/logger"
)

// fakeStorage serves canned per-flight pings and records enrichment writes
type fakeStorage struct {
	mu      sync.Mutex
	flights map[string][]*tracking.Ping
	order   []string
	updated map[string][]*tracking.Ping
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		flights: make(map[string][]*tracking.Ping),
		updated: make(map[string][]*tracking.Ping),
	}
}

func (s *fakeStorage) addFlight(id string, pattern []bool) {
	pings := trackPings(pattern)
	for _, p := range pings {
		p.FlightID = id
	}
	s.flights[id] = pings
	s.order = append(s.order, id)
}

func (s *fakeStorage) CandidateFlightIDs(filter CandidateFilter) ([]string, error) {
	return append([]string(nil), s.order...), nil
}

func (s *fakeStorage) PingsForFlight(flightID string) ([]*tracking.Ping, error) {
	return s.flights[flightID], nil
}

func (s *fakeStorage) UpdateEnrichment(pings []*tracking.Ping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(pings) > 0 {
		s.updated[pings[0].FlightID] = pings
	}
	return nil
}

func testEngine(t *testing.T, storage Storage, workers int) *Engine {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	require.NoError(t, err)

	pred, err := NewZonePredicate(testRing(), 5000)
	require.NoError(t, err)

	return NewEngine(pred, storage, CandidateFilter{}, workers, log)
}

func TestEngineRunClassifiesAllFlights(t *testing.T) {
	storage := newFakeStorage()
	storage.addFlight("landing", []bool{false, true, true, false})
	storage.addFlight("touchngo", []bool{true, false, true, false})
	storage.addFlight("quiet", []bool{false, false})

	engine := testEngine(t, storage, 2)

	stats, labeled, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Flights)
	assert.Equal(t, 10, stats.Pings)
	assert.Equal(t, 2, stats.Events)
	assert.Equal(t, 1, stats.EventsByType[tracking.EventLanding])
	assert.Equal(t, 1, stats.EventsByType[tracking.EventTouchNGo])
	assert.Len(t, labeled, 2)

	// Enrichment was persisted for every flight with pings
	assert.Len(t, storage.updated, 3)
}

func TestEngineRunIsOrderIndependent(t *testing.T) {
	build := func(order []string) map[string][]tracking.RunwayEvent {
		storage := newFakeStorage()
		patterns := map[string][]bool{
			"a": {false, true, false, true},
			"b": {true, false, true, false},
			"c": {false, true, true, false},
		}
		for _, id := range order {
			storage.addFlight(id, patterns[id])
		}

		engine := testEngine(t, storage, 1)
		_, _, err := engine.Run(context.Background())
		require.NoError(t, err)

		out := make(map[string][]tracking.RunwayEvent)
		for id, pings := range storage.flights {
			out[id] = events(pings)
		}
		return out
	}

	first := build([]string{"a", "b", "c"})
	second := build([]string{"c", "a", "b"})
	assert.Equal(t, first, second)
}

func TestEngineRunCanceledContext(t *testing.T) {
	storage := newFakeStorage()
	for i := 0; i < 50; i++ {
		storage.addFlight(fmt.Sprintf("flight-%02d", i), []bool{false, true, false})
	}

	engine := testEngine(t, storage, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := engine.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

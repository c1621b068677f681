package runway

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/runwayscope/runwayscope/internal/tracking"
	"github.com/runwayscope/runwayscope/pkg/logger"
)

// CandidateFilter narrows which flights are worth classifying. It mirrors
// the airborne prefilter applied by the reporting queries: a flight with no
// airborne ping near the runway axis never produces a runway event.
type CandidateFilter struct {
	MinGroundSpeedKts   float64 // Minimum ground speed of at least one ping
	MaxAltitudeFt       float64 // Altitude cutoff for candidate pings
	RunwayAzimuthDeg    float64 // True runway heading, used with the tolerance below
	HeadingToleranceDeg float64 // Max deviation of heading from the runway axis (0 disables)
}

// Storage is the persistence interface the engine reads flights from and
// writes enrichment back to. Writes are partitioned by flight, so the engine
// needs no locking around them.
type Storage interface {
	CandidateFlightIDs(filter CandidateFilter) ([]string, error)
	PingsForFlight(flightID string) ([]*tracking.Ping, error)
	UpdateEnrichment(pings []*tracking.Ping) error
}

// Stats summarizes one classification run.
type Stats struct {
	Flights          int                          `json:"flights"`
	Pings            int                          `json:"pings"`
	Events           int                          `json:"events"`
	EventsByType     map[tracking.RunwayEvent]int `json:"events_by_type"`
	MissingTelemetry int64                        `json:"missing_telemetry"`
	Duration         time.Duration                `json:"duration_ns"`
}

// Engine runs the three-pass enrichment (containment, transitions, events)
// over every candidate flight. Flights are independent, so they are
// processed concurrently by a bounded pool of workers.
type Engine struct {
	pred    *ZonePredicate
	storage Storage
	filter  CandidateFilter
	workers int
	logger  *logger.Logger
}

// NewEngine creates a new runway event engine
func NewEngine(pred *ZonePredicate, storage Storage, filter CandidateFilter, workers int, log *logger.Logger) *Engine {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Engine{
		pred:    pred,
		storage: storage,
		filter:  filter,
		workers: workers,
		logger:  log.Named("runway-engine"),
	}
}

// Predicate returns the zone predicate the engine classifies against
func (e *Engine) Predicate() *ZonePredicate {
	return e.pred
}

// EnrichFlight runs the three enrichment passes over one flight's pings,
// in place. The slice is sorted into timeline order. Re-running over the
// same input yields identical results.
func EnrichFlight(pred *ZonePredicate, pings []*tracking.Ping) Timeline {
	tl := NewTimeline(pings)
	annotateContainment(pred, tl)
	computeTransitions(tl)
	classifyEvents(tl)
	return tl
}

// Run classifies all candidate flights and persists the enrichment.
// It returns aggregate statistics along with the labeled crossing pings.
func (e *Engine) Run(ctx context.Context) (Stats, []*tracking.Ping, error) {
	start := time.Now()

	flightIDs, err := e.storage.CandidateFlightIDs(e.filter)
	if err != nil {
		return Stats{}, nil, fmt.Errorf("failed to list candidate flights: %w", err)
	}

	e.logger.Info("Starting classification run",
		logger.Int("flights", len(flightIDs)),
		logger.Int("workers", e.workers))

	missingBefore := e.pred.MissingTelemetryCount()

	type flightResult struct {
		pings  int
		events []*tracking.Ping
		err    error
	}

	jobs := make(chan string)
	results := make(chan flightResult)

	var wg sync.WaitGroup
	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for flightID := range jobs {
				pings, events, err := e.classifyFlight(flightID)
				results <- flightResult{pings: pings, events: events, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, id := range flightIDs {
			select {
			case jobs <- id:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	stats := Stats{
		EventsByType: make(map[tracking.RunwayEvent]int),
	}
	var labeled []*tracking.Ping
	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		stats.Flights++
		stats.Pings += r.pings
		for _, p := range r.events {
			stats.Events++
			stats.EventsByType[p.Event]++
			labeled = append(labeled, p)
		}
	}
	if firstErr != nil {
		return stats, labeled, firstErr
	}
	if err := ctx.Err(); err != nil {
		return stats, labeled, err
	}

	stats.MissingTelemetry = e.pred.MissingTelemetryCount() - missingBefore
	stats.Duration = time.Since(start)

	e.logger.Info("Classification run complete",
		logger.Int("flights", stats.Flights),
		logger.Int("pings", stats.Pings),
		logger.Int("events", stats.Events),
		logger.Int64("missing_telemetry", stats.MissingTelemetry),
		logger.Duration("duration", stats.Duration))

	return stats, labeled, nil
}

// classifyFlight loads, enriches and persists a single flight
func (e *Engine) classifyFlight(flightID string) (int, []*tracking.Ping, error) {
	pings, err := e.storage.PingsForFlight(flightID)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to load pings for flight %s: %w", flightID, err)
	}
	if len(pings) == 0 {
		return 0, nil, nil
	}

	tl := EnrichFlight(e.pred, pings)

	if err := e.storage.UpdateEnrichment(tl.Pings()); err != nil {
		return 0, nil, fmt.Errorf("failed to persist enrichment for flight %s: %w", flightID, err)
	}

	var events []*tracking.Ping
	for _, p := range tl.Pings() {
		if p.Event != tracking.EventNone {
			events = append(events, p)
		}
	}
	return tl.Len(), events, nil
}

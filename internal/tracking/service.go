// Package tracking ingests live aircraft telemetry into storage. Each feed
// snapshot becomes one ping per aircraft, with IDs allocated from a
// monotonic sequence so later processing can break timestamp ties
// deterministically.
package tracking

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/runwayscope/runwayscope/internal/websocket"
	"github.com/runwayscope/runwayscope/pkg/logger"
)

// Broadcaster pushes ingestion heartbeats to connected clients
type Broadcaster interface {
	Broadcast(message *websocket.Message)
}

// Service periodically fetches feed snapshots and persists them
type Service struct {
	client        *Client
	storage       Storage
	seq           *Sequence
	hub           Broadcaster
	fetchInterval time.Duration
	logger        *logger.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup

	statusMu      sync.RWMutex
	lastFetchTime time.Time
	fetchOK       bool
}

// NewService creates a new ingestion service. The ping ID sequence is seeded
// from the highest ID already in storage. hub may be nil when no WebSocket
// clients are served.
func NewService(
	client *Client,
	storage Storage,
	hub Broadcaster,
	fetchInterval time.Duration,
	loggerObj *logger.Logger,
) (*Service, error) {
	maxID, err := storage.MaxPingID()
	if err != nil {
		return nil, err
	}

	return &Service{
		client:        client,
		storage:       storage,
		seq:           NewSequence(maxID),
		hub:           hub,
		fetchInterval: fetchInterval,
		logger:        loggerObj.Named("tracking"),
		stopCh:        make(chan struct{}),
	}, nil
}

// Start performs an initial fetch and launches the background fetch loop
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Starting tracking service",
		logger.Duration("fetch_interval", s.fetchInterval),
		logger.String("bounds", s.client.Bounds()),
	)

	if err := s.fetchAndStore(ctx); err != nil {
		s.logger.Error("Failed to fetch initial feed data", logger.Error(err))
		s.setFetchStatus(false)
	} else {
		s.setFetchStatus(true)
	}

	s.wg.Add(1)
	go s.fetchLoop(ctx)

	return nil
}

// Stop stops the tracking service
func (s *Service) Stop() {
	s.logger.Info("Stopping tracking service")
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("Tracking service stopped")
}

func (s *Service) fetchLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.fetchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.fetchAndStore(ctx); err != nil {
				s.logger.Error("Failed to fetch feed data", logger.Error(err))
				s.setFetchStatus(false)
			} else {
				s.setFetchStatus(true)
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// fetchAndStore fetches one snapshot and persists its pings and flight
// metadata
func (s *Service) fetchAndStore(ctx context.Context) error {
	data, err := s.client.FetchData(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	pings := make([]*Ping, 0, len(data.Aircraft))
	flights := make(map[string]bool)
	for i := range data.Aircraft {
		rec := &data.Aircraft[i]
		if rec.FlightID == "" || !validCoords(rec.Lat, rec.Lon) {
			continue
		}

		ts := now
		if rec.Time > 0 {
			ts = time.Unix(rec.Time, 0).UTC()
		}

		pings = append(pings, &Ping{
			ID:            s.seq.Next(),
			FlightID:      rec.FlightID,
			Timestamp:     ts,
			Lat:           rec.Lat,
			Lon:           rec.Lon,
			Altitude:      rec.Altitude,
			GroundSpeed:   rec.GroundSpeed,
			VerticalSpeed: rec.VerticalSpeed,
			Heading:       rec.Heading,
			Squawk:        rec.Squawk,
			OnGround:      rec.OnGround,
		})
		flights[rec.FlightID] = true

		if err := s.storage.UpsertFlight(&FlightInfo{
			FlightID:        rec.FlightID,
			Callsign:        rec.Callsign,
			Number:          rec.Number,
			Registration:    rec.Registration,
			AircraftCode:    rec.AircraftCode,
			AirlineIATA:     rec.AirlineIATA,
			AirlineICAO:     rec.AirlineICAO,
			OriginIATA:      rec.OriginIATA,
			DestinationIATA: rec.DestinationIATA,
			FirstSeen:       ts,
			LastSeen:        ts,
		}); err != nil {
			s.logger.Error("Failed to upsert flight",
				logger.String("flight_id", rec.FlightID),
				logger.Error(err))
		}
	}

	if err := s.storage.InsertPings(pings); err != nil {
		return err
	}

	s.logger.Debug("Stored feed snapshot",
		logger.Int("pings", len(pings)),
		logger.Int("skipped", len(data.Aircraft)-len(pings)))

	if s.hub != nil && len(pings) > 0 {
		s.hub.Broadcast(&websocket.Message{
			Type: websocket.MessageTypePingBatch,
			Data: map[string]any{
				"pings":   len(pings),
				"flights": len(flights),
				"time":    now,
			},
		})
	}

	s.setLastFetchTime(now)
	return nil
}

// GetStatus returns the time of the last fetch attempt and whether it
// succeeded
func (s *Service) GetStatus() (time.Time, bool) {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.lastFetchTime, s.fetchOK
}

func (s *Service) setLastFetchTime(t time.Time) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.lastFetchTime = t
}

func (s *Service) setFetchStatus(ok bool) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.fetchOK = ok
}

func validCoords(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

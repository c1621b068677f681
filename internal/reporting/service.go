// Package reporting turns stored pings and classified runway events into
// human-facing statistics: event listings enriched with airline and airport
// metadata, hourly traffic counts, and runway direction usage.
package reporting

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/runwayscope/runwayscope/internal/geo"
	"github.com/runwayscope/runwayscope/internal/storage/sqlite"
	"github.com/runwayscope/runwayscope/internal/tracking"
	"github.com/runwayscope/runwayscope/pkg/logger"
)

// Airline is one entry in the airlines.json lookup file
type Airline struct {
	Name     string `json:"name"`
	Alias    string `json:"alias"`
	IATA     string `json:"iata"`
	ICAO     string `json:"icao"`
	Callsign string `json:"callsign"`
	Country  string `json:"country"`
}

// Aircraft is one entry in the aircraft.json lookup file, mapping type
// designators to the model name
type Aircraft struct {
	Name string `json:"name"`
	IATA string `json:"iata"`
	ICAO string `json:"icao"`
}

// Airport is one entry in the airports.json lookup file
type Airport struct {
	Name    string  `json:"name"`
	City    string  `json:"city"`
	Country string  `json:"country"`
	IATA    string  `json:"iata"`
	ICAO    string  `json:"icao"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Storage defines the queries the reporting service needs
type Storage interface {
	EventRecords() ([]sqlite.EventRecord, error)
	HourlyCounts() ([]sqlite.HourlyCount, error)
	EventCounts() (map[tracking.RunwayEvent]int, error)
	PingCount() (int, error)
}

// Event is a classified runway event enriched for presentation
type Event struct {
	Timestamp         time.Time            `json:"timestamp"`
	FlightID          string               `json:"flight_id"`
	Callsign          string               `json:"callsign"`
	Number            string               `json:"number"`
	Registration      string               `json:"registration"`
	AircraftCode      string               `json:"aircraft_code"`
	AircraftModel     string               `json:"aircraft_model,omitempty"`
	Event             tracking.RunwayEvent `json:"event"`
	Runway            string               `json:"runway"`
	Airline           string               `json:"airline,omitempty"`
	ConnectingIATA    string               `json:"connecting_airport_iata,omitempty"`
	ConnectingAirport string               `json:"connecting_airport,omitempty"`
}

// Summary aggregates everything the status endpoints and the AI summarizer
// consume
type Summary struct {
	PingCount    int                          `json:"ping_count"`
	EventCounts  map[tracking.RunwayEvent]int `json:"event_counts"`
	RunwayCounts map[string]int               `json:"runway_counts"`
	HourlyCounts []sqlite.HourlyCount         `json:"hourly_counts"`
	RecentEvents []Event                      `json:"recent_events"`
	Runways      [2]string                    `json:"runways"`
	GeneratedAt  time.Time                    `json:"generated_at"`
}

// Service builds reports from storage
type Service struct {
	storage     Storage
	logger      *logger.Logger
	airlines    map[string]Airline  // keyed by IATA and ICAO
	airports    map[string]Airport  // keyed by IATA
	aircraft    map[string]Aircraft // keyed by IATA and ICAO type designator
	azimuthDeg  float64
	designators [2]string // aligned with azimuth, reciprocal
}

// NewService creates a reporting service. Runway designators are derived
// from the runway's magnetic heading at the station, so a 142.8 deg true
// axis near zero declination yields "14" and "32". Lookup files are
// optional; a missing path just leaves the enrichment fields empty.
func NewService(
	storage Storage,
	azimuthDeg float64,
	stationLat float64,
	stationLon float64,
	elevationFt float64,
	airlinesPath string,
	airportsPath string,
	aircraftPath string,
	loggerObj *logger.Logger,
) (*Service, error) {
	s := &Service{
		storage:    storage,
		logger:     loggerObj.Named("reporting"),
		airlines:   make(map[string]Airline),
		airports:   make(map[string]Airport),
		aircraft:   make(map[string]Aircraft),
		azimuthDeg: azimuthDeg,
	}

	decl := geo.MagneticDeclination(stationLat, stationLon, elevationFt, time.Now())
	s.designators = runwayDesignators(azimuthDeg, decl)
	s.logger.Info("Runway designators resolved",
		logger.Float64("true_azimuth", azimuthDeg),
		logger.Float64("declination", decl),
		logger.String("runways", s.designators[0]+"/"+s.designators[1]))

	if airlinesPath != "" {
		if err := s.loadAirlineData(airlinesPath); err != nil {
			return nil, fmt.Errorf("failed to load airline data: %w", err)
		}
	}
	if airportsPath != "" {
		if err := s.loadAirportData(airportsPath); err != nil {
			return nil, fmt.Errorf("failed to load airport data: %w", err)
		}
	}
	if aircraftPath != "" {
		if err := s.loadAircraftData(aircraftPath); err != nil {
			return nil, fmt.Errorf("failed to load aircraft data: %w", err)
		}
	}

	return s, nil
}

func (s *Service) loadAirlineData(path string) error {
	s.logger.Info("Loading airline data from: " + path)

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var airlines []Airline
	if err := json.Unmarshal(data, &airlines); err != nil {
		return err
	}

	for _, airline := range airlines {
		if airline.ICAO != "" && airline.ICAO != "N/A" {
			s.airlines[airline.ICAO] = airline
		}
		if airline.IATA != "" && airline.IATA != "-" && airline.IATA != "N/A" {
			s.airlines[airline.IATA] = airline
		}
	}

	s.logger.Info("Loaded airline data", logger.Int("count", len(s.airlines)))
	return nil
}

func (s *Service) loadAirportData(path string) error {
	s.logger.Info("Loading airport data from: " + path)

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var airports []Airport
	if err := json.Unmarshal(data, &airports); err != nil {
		return err
	}

	for _, airport := range airports {
		if airport.IATA != "" {
			s.airports[airport.IATA] = airport
		}
	}

	s.logger.Info("Loaded airport data", logger.Int("count", len(s.airports)))
	return nil
}

func (s *Service) loadAircraftData(path string) error {
	s.logger.Info("Loading aircraft data from: " + path)

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var aircraft []Aircraft
	if err := json.Unmarshal(data, &aircraft); err != nil {
		return err
	}

	for _, ac := range aircraft {
		if ac.ICAO != "" && ac.ICAO != "N/A" {
			s.aircraft[ac.ICAO] = ac
		}
		if ac.IATA != "" && ac.IATA != "-" && ac.IATA != "N/A" {
			s.aircraft[ac.IATA] = ac
		}
	}

	s.logger.Info("Loaded aircraft data", logger.Int("count", len(s.aircraft)))
	return nil
}

// Runways returns the two runway designators, axis-aligned first
func (s *Service) Runways() [2]string {
	return s.designators
}

// RunwayForHeading maps a ping heading onto one of the two runway
// designators: whichever end of the axis the aircraft was moving towards.
func (s *Service) RunwayForHeading(heading float64) string {
	if angularDistance(heading, s.azimuthDeg) < 90 {
		return s.designators[0]
	}
	return s.designators[1]
}

// Events returns all classified runway events enriched with airline,
// connecting airport and runway direction
func (s *Service) Events() ([]Event, error) {
	records, err := s.storage.EventRecords()
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(records))
	for _, rec := range records {
		events = append(events, s.enrich(rec))
	}
	return events, nil
}

func (s *Service) enrich(rec sqlite.EventRecord) Event {
	e := Event{
		Timestamp:    rec.Ping.Timestamp,
		FlightID:     rec.Ping.FlightID,
		Callsign:     rec.Flight.Callsign,
		Number:       rec.Flight.Number,
		Registration: rec.Flight.Registration,
		AircraftCode: rec.Flight.AircraftCode,
		Event:        rec.Ping.Event,
		Runway:       s.RunwayForHeading(rec.Ping.Heading),
	}

	if airline, ok := s.lookupAirline(rec.Flight); ok {
		e.Airline = airline.Name
	}
	if ac, ok := s.aircraft[rec.Flight.AircraftCode]; ok {
		e.AircraftModel = ac.Name
	}

	// A landing connects the flight to where it came from, a takeoff (or a
	// touch-n-go continuing its circuit) to where it is going.
	switch rec.Ping.Event {
	case tracking.EventLanding:
		e.ConnectingIATA = rec.Flight.OriginIATA
	case tracking.EventTakeoff, tracking.EventTouchNGo:
		e.ConnectingIATA = rec.Flight.DestinationIATA
	}
	if airport, ok := s.airports[e.ConnectingIATA]; ok {
		e.ConnectingAirport = airport.Name
	}

	return e
}

func (s *Service) lookupAirline(f tracking.FlightInfo) (Airline, bool) {
	if f.AirlineICAO != "" {
		if airline, ok := s.airlines[f.AirlineICAO]; ok {
			return airline, true
		}
	}
	if f.AirlineIATA != "" {
		if airline, ok := s.airlines[f.AirlineIATA]; ok {
			return airline, true
		}
	}
	return Airline{}, false
}

// HourlyCounts returns ping counts bucketed by hour
func (s *Service) HourlyCounts() ([]sqlite.HourlyCount, error) {
	return s.storage.HourlyCounts()
}

// RunwayCounts returns the number of classified events per runway direction
func (s *Service) RunwayCounts() (map[string]int, error) {
	events, err := s.Events()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, e := range events {
		counts[e.Runway]++
	}
	return counts, nil
}

// BuildSummary assembles the full report. recentLimit caps the number of
// events included, newest last; pass 0 for all.
func (s *Service) BuildSummary(recentLimit int) (*Summary, error) {
	events, err := s.Events()
	if err != nil {
		return nil, err
	}

	eventCounts, err := s.storage.EventCounts()
	if err != nil {
		return nil, err
	}

	hourly, err := s.storage.HourlyCounts()
	if err != nil {
		return nil, err
	}

	pingCount, err := s.storage.PingCount()
	if err != nil {
		return nil, err
	}

	runwayCounts := make(map[string]int)
	for _, e := range events {
		runwayCounts[e.Runway]++
	}

	if recentLimit > 0 && len(events) > recentLimit {
		events = events[len(events)-recentLimit:]
	}

	return &Summary{
		PingCount:    pingCount,
		EventCounts:  eventCounts,
		RunwayCounts: runwayCounts,
		HourlyCounts: hourly,
		RecentEvents: events,
		Runways:      s.designators,
		GeneratedAt:  time.Now().UTC(),
	}, nil
}

// runwayDesignators derives the two designators from the true axis heading
// and the local magnetic declination
func runwayDesignators(trueAzimuthDeg, declinationDeg float64) [2]string {
	magnetic := math.Mod(trueAzimuthDeg-declinationDeg+360, 360)
	num := int(math.Round(magnetic/10)) % 36
	if num == 0 {
		num = 36
	}
	reciprocal := (num+18-1)%36 + 1
	return [2]string{fmt.Sprintf("%02d", num), fmt.Sprintf("%02d", reciprocal)}
}

// angularDistance returns the absolute difference between two headings in
// the range [0, 180]
func angularDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

package tracking

import (
	"time"

	"github.com/runwayscope/runwayscope/internal/geo"
)

// RunwayEvent is the classification attached to a region-crossing ping.
type RunwayEvent string

const (
	EventNone     RunwayEvent = ""
	EventTakeoff  RunwayEvent = "takeoff"
	EventLanding  RunwayEvent = "landing"
	EventTouchNGo RunwayEvent = "touch-n-go"
)

// Valid reports whether e is one of the known event labels (or none).
func (e RunwayEvent) Valid() bool {
	switch e {
	case EventNone, EventTakeoff, EventLanding, EventTouchNGo:
		return true
	}
	return false
}

// Ping is a single telemetry sample for a flight. The identifying and
// telemetry fields are immutable after ingestion; InRegion, Transition and
// Event are derived by the classification engine.
type Ping struct {
	ID            int64     `json:"id"`
	FlightID      string    `json:"flight_id"`
	Timestamp     time.Time `json:"timestamp"`
	Lat           float64   `json:"lat"`
	Lon           float64   `json:"lon"`
	Altitude      *float64  `json:"altitude"` // feet; nil when the source omitted it
	GroundSpeed   float64   `json:"ground_speed"`
	VerticalSpeed float64   `json:"vertical_speed"`
	Heading       float64   `json:"heading"`
	Squawk        string    `json:"squawk"`
	OnGround      bool      `json:"on_ground"`

	// Derived fields, written back by the runway event engine
	InRegion   bool        `json:"in_region"`
	Transition int8        `json:"transition"` // -1 exit, 0 no change, +1 entry
	Event      RunwayEvent `json:"event,omitempty"`
}

// Point returns the ping's geographic coordinate
func (p *Ping) Point() geo.Point {
	return geo.Point{Lon: p.Lon, Lat: p.Lat}
}

// FlightInfo is the per-flight metadata kept alongside pings. It is consumed
// by reporting only, never by the classification core.
type FlightInfo struct {
	FlightID        string    `json:"flight_id"`
	Callsign        string    `json:"callsign"`
	Number          string    `json:"number"`
	Registration    string    `json:"registration"`
	AircraftCode    string    `json:"aircraft_code"`
	AirlineIATA     string    `json:"airline_iata"`
	AirlineICAO     string    `json:"airline_icao"`
	OriginIATA      string    `json:"origin_airport_iata"`
	DestinationIATA string    `json:"destination_airport_iata"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
}

// FeedRecord is one aircraft entry in the raw live-feed JSON.
type FeedRecord struct {
	FlightID        string   `json:"id"`
	Lat             float64  `json:"latitude"`
	Lon             float64  `json:"longitude"`
	Altitude        *float64 `json:"altitude"`
	GroundSpeed     float64  `json:"ground_speed"`
	VerticalSpeed   float64  `json:"vertical_speed"`
	Heading         float64  `json:"heading"`
	Squawk          string   `json:"squawk"`
	OnGround        bool     `json:"on_ground"`
	Time            int64    `json:"time"` // unix seconds
	Callsign        string   `json:"callsign"`
	Number          string   `json:"number"`
	Registration    string   `json:"registration"`
	AircraftCode    string   `json:"aircraft_code"`
	AirlineIATA     string   `json:"airline_iata"`
	AirlineICAO     string   `json:"airline_icao"`
	OriginIATA      string   `json:"origin_airport_iata"`
	DestinationIATA string   `json:"destination_airport_iata"`
}

// Storage defines the persistence interface used by the ingestion service.
type Storage interface {
	InsertPings(pings []*Ping) error
	UpsertFlight(info *FlightInfo) error
	MaxPingID() (int64, error)
}

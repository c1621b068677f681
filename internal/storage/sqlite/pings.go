// Package sqlite persists pings, flight metadata and classification results
// in a SQLite database.
package sqlite

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/runwayscope/runwayscope/internal/runway"
	"github.com/runwayscope/runwayscope/internal/tracking"
	"github.com/runwayscope/runwayscope/pkg/logger"
)

// PingStorage is a SQLite-based storage for pings and flights
type PingStorage struct {
	db            *sql.DB
	logger        *logger.Logger
	maxPingsInAPI int
}

// NewPingStorage opens (or creates) the database at dbPath
func NewPingStorage(dbPath string, maxPingsInAPI int, log *logger.Logger) (*PingStorage, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite storage",
		logger.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := initDatabase(db, storageLogger); err != nil {
		db.Close()
		return nil, err
	}

	return &PingStorage{
		db:            db,
		logger:        storageLogger,
		maxPingsInAPI: maxPingsInAPI,
	}, nil
}

// Close closes the database connection
func (s *PingStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetDB returns the database connection
func (s *PingStorage) GetDB() *sql.DB {
	return s.db
}

// initDatabase initializes the database schema
func initDatabase(db *sql.DB, log *logger.Logger) error {
	log.Info("Initializing database schema")

	// Timestamps are stored as unix seconds so the aggregate queries can
	// bucket them with strftime(..., 'unixepoch').
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS pings (
			id INTEGER PRIMARY KEY,
			flight_id TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			lat REAL NOT NULL,
			lon REAL NOT NULL,
			altitude REAL,
			ground_speed REAL,
			vertical_speed REAL,
			heading REAL,
			squawk TEXT,
			on_ground INTEGER DEFAULT 0,
			in_region INTEGER NOT NULL DEFAULT 0,
			transition INTEGER NOT NULL DEFAULT 0,
			event TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create pings table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS flights (
			flight_id TEXT PRIMARY KEY,
			callsign TEXT,
			number TEXT,
			registration TEXT,
			aircraft_code TEXT,
			airline_iata TEXT,
			airline_icao TEXT,
			origin_airport_iata TEXT,
			destination_airport_iata TEXT,
			first_seen INTEGER,
			last_seen INTEGER
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create flights table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_pings_flight_timestamp ON pings(flight_id, timestamp)`)
	if err != nil {
		return fmt.Errorf("failed to create index on pings.flight_id: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_pings_event ON pings(event) WHERE event IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("failed to create index on pings.event: %w", err)
	}

	return nil
}

// MaxPingID returns the highest persisted ping ID, or 0 for an empty table.
// The ingestion sequence is seeded from it so IDs keep increasing across
// restarts against the same database.
func (s *PingStorage) MaxPingID() (int64, error) {
	var id sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(id) FROM pings`).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to query max ping id: %w", err)
	}
	return id.Int64, nil
}

// InsertPings inserts a batch of pings in one transaction
func (s *PingStorage) InsertPings(pings []*tracking.Ping) error {
	if len(pings) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO pings (
			id, flight_id, timestamp, lat, lon, altitude,
			ground_speed, vertical_speed, heading, squawk, on_ground
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare ping insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range pings {
		var altitude interface{}
		if p.Altitude != nil && !math.IsNaN(*p.Altitude) {
			altitude = *p.Altitude
		}
		_, err := stmt.Exec(
			p.ID, p.FlightID, p.Timestamp.UTC().Unix(), p.Lat, p.Lon, altitude,
			p.GroundSpeed, p.VerticalSpeed, p.Heading, p.Squawk, boolToInt(p.OnGround),
		)
		if err != nil {
			return fmt.Errorf("failed to insert ping %d: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ping batch: %w", err)
	}
	return nil
}

// UpsertFlight inserts or refreshes a flight metadata row
func (s *PingStorage) UpsertFlight(info *tracking.FlightInfo) error {
	_, err := s.db.Exec(`
		INSERT INTO flights (
			flight_id, callsign, number, registration, aircraft_code,
			airline_iata, airline_icao, origin_airport_iata, destination_airport_iata,
			first_seen, last_seen
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(flight_id) DO UPDATE SET
			callsign = excluded.callsign,
			registration = excluded.registration,
			origin_airport_iata = excluded.origin_airport_iata,
			destination_airport_iata = excluded.destination_airport_iata,
			last_seen = excluded.last_seen
	`,
		info.FlightID, info.Callsign, info.Number, info.Registration, info.AircraftCode,
		info.AirlineIATA, info.AirlineICAO, info.OriginIATA, info.DestinationIATA,
		info.FirstSeen.UTC().Unix(), info.LastSeen.UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert flight %s: %w", info.FlightID, err)
	}
	return nil
}

// CandidateFlightIDs returns the distinct flights with at least one airborne
// ping matching the filter. The heading condition replicates the runway-axis
// alignment test: abs(heading mod 180 - axis mod 180) < tolerance.
func (s *PingStorage) CandidateFlightIDs(filter runway.CandidateFilter) ([]string, error) {
	query := `
		SELECT DISTINCT flight_id FROM pings
		WHERE on_ground = 0
		  AND ground_speed >= ?
		  AND (altitude IS NULL OR altitude < ?)
	`
	args := []interface{}{filter.MinGroundSpeedKts, filter.MaxAltitudeFt}

	if filter.HeadingToleranceDeg > 0 {
		query += ` AND abs((heading - ?) - 180.0 * round((heading - ?) / 180.0)) < ?`
		axis := math.Mod(filter.RunwayAzimuthDeg, 180)
		args = append(args, axis, axis, filter.HeadingToleranceDeg)
	}
	query += ` ORDER BY flight_id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate flights: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan flight id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PingsForFlight returns all pings of one flight ordered by timestamp, with
// the ingestion ID breaking timestamp ties.
func (s *PingStorage) PingsForFlight(flightID string) ([]*tracking.Ping, error) {
	rows, err := s.db.Query(`
		SELECT id, flight_id, timestamp, lat, lon, altitude,
		       ground_speed, vertical_speed, heading, squawk, on_ground,
		       in_region, transition, event
		FROM pings
		WHERE flight_id = ?
		ORDER BY timestamp, id
	`, flightID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pings for flight %s: %w", flightID, err)
	}
	defer rows.Close()

	return scanPings(rows)
}

// Pings returns recent pings, optionally restricted to one flight
func (s *PingStorage) Pings(flightID string, limit int) ([]*tracking.Ping, error) {
	if limit <= 0 || limit > s.maxPingsInAPI {
		limit = s.maxPingsInAPI
	}

	query := `
		SELECT id, flight_id, timestamp, lat, lon, altitude,
		       ground_speed, vertical_speed, heading, squawk, on_ground,
		       in_region, transition, event
		FROM pings
	`
	args := []interface{}{}
	if flightID != "" {
		query += ` WHERE flight_id = ?`
		args = append(args, flightID)
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pings: %w", err)
	}
	defer rows.Close()

	return scanPings(rows)
}

// UpdateEnrichment writes the derived columns back for the given pings.
// Callers partition updates by flight, so concurrent calls touch disjoint
// rows.
func (s *PingStorage) UpdateEnrichment(pings []*tracking.Ping) error {
	if len(pings) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE pings SET in_region = ?, transition = ?, event = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare enrichment update: %w", err)
	}
	defer stmt.Close()

	for _, p := range pings {
		var event interface{}
		if p.Event != tracking.EventNone {
			event = string(p.Event)
		}
		if _, err := stmt.Exec(boolToInt(p.InRegion), p.Transition, event, p.ID); err != nil {
			return fmt.Errorf("failed to update ping %d: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit enrichment batch: %w", err)
	}
	return nil
}

// Flights returns all flight metadata rows
func (s *PingStorage) Flights() ([]*tracking.FlightInfo, error) {
	rows, err := s.db.Query(`
		SELECT flight_id, callsign, number, registration, aircraft_code,
		       airline_iata, airline_icao, origin_airport_iata, destination_airport_iata,
		       first_seen, last_seen
		FROM flights
		ORDER BY last_seen DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query flights: %w", err)
	}
	defer rows.Close()

	var flights []*tracking.FlightInfo
	for rows.Next() {
		var f tracking.FlightInfo
		var firstSeen, lastSeen int64
		err := rows.Scan(
			&f.FlightID, &f.Callsign, &f.Number, &f.Registration, &f.AircraftCode,
			&f.AirlineIATA, &f.AirlineICAO, &f.OriginIATA, &f.DestinationIATA,
			&firstSeen, &lastSeen,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flight: %w", err)
		}
		f.FirstSeen = time.Unix(firstSeen, 0).UTC()
		f.LastSeen = time.Unix(lastSeen, 0).UTC()
		flights = append(flights, &f)
	}
	return flights, rows.Err()
}

// EventRecord is one classified runway event joined with flight metadata
type EventRecord struct {
	Ping   tracking.Ping       `json:"ping"`
	Flight tracking.FlightInfo `json:"flight"`
}

// EventRecords returns all classified runway events with their flight
// metadata, oldest first
func (s *PingStorage) EventRecords() ([]EventRecord, error) {
	rows, err := s.db.Query(`
		SELECT p.id, p.flight_id, p.timestamp, p.lat, p.lon, p.altitude,
		       p.ground_speed, p.vertical_speed, p.heading, p.squawk, p.on_ground,
		       p.in_region, p.transition, p.event,
		       COALESCE(f.callsign, ''), COALESCE(f.number, ''), COALESCE(f.registration, ''),
		       COALESCE(f.aircraft_code, ''), COALESCE(f.airline_iata, ''), COALESCE(f.airline_icao, ''),
		       COALESCE(f.origin_airport_iata, ''), COALESCE(f.destination_airport_iata, '')
		FROM pings p
		LEFT JOIN flights f ON f.flight_id = p.flight_id
		WHERE p.event IS NOT NULL
		ORDER BY p.timestamp, p.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query event records: %w", err)
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		var rec EventRecord
		var ts int64
		var altitude sql.NullFloat64
		var event sql.NullString
		var onGround, inRegion int
		err := rows.Scan(
			&rec.Ping.ID, &rec.Ping.FlightID, &ts, &rec.Ping.Lat, &rec.Ping.Lon, &altitude,
			&rec.Ping.GroundSpeed, &rec.Ping.VerticalSpeed, &rec.Ping.Heading, &rec.Ping.Squawk, &onGround,
			&inRegion, &rec.Ping.Transition, &event,
			&rec.Flight.Callsign, &rec.Flight.Number, &rec.Flight.Registration,
			&rec.Flight.AircraftCode, &rec.Flight.AirlineIATA, &rec.Flight.AirlineICAO,
			&rec.Flight.OriginIATA, &rec.Flight.DestinationIATA,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event record: %w", err)
		}
		rec.Ping.Timestamp = time.Unix(ts, 0).UTC()
		rec.Ping.OnGround = onGround != 0
		rec.Ping.InRegion = inRegion != 0
		if altitude.Valid {
			alt := altitude.Float64
			rec.Ping.Altitude = &alt
		}
		if event.Valid {
			rec.Ping.Event = tracking.RunwayEvent(event.String)
		}
		rec.Flight.FlightID = rec.Ping.FlightID
		records = append(records, rec)
	}
	return records, rows.Err()
}

// HourlyCount is the number of pings recorded in one hour bucket
type HourlyCount struct {
	Hour  string `json:"hour"` // "2006-01-02 15"
	Count int    `json:"count"`
}

// HourlyCounts returns ping counts bucketed by hour
func (s *PingStorage) HourlyCounts() ([]HourlyCount, error) {
	rows, err := s.db.Query(`
		SELECT strftime('%Y-%m-%d %H', datetime(timestamp, 'unixepoch')) AS hour, COUNT(*)
		FROM pings
		GROUP BY hour
		ORDER BY hour
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query hourly counts: %w", err)
	}
	defer rows.Close()

	var counts []HourlyCount
	for rows.Next() {
		var c HourlyCount
		if err := rows.Scan(&c.Hour, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan hourly count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// EventCounts returns the number of classified events per label
func (s *PingStorage) EventCounts() (map[tracking.RunwayEvent]int, error) {
	rows, err := s.db.Query(`
		SELECT event, COUNT(*) FROM pings
		WHERE event IS NOT NULL
		GROUP BY event
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query event counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[tracking.RunwayEvent]int)
	for rows.Next() {
		var event string
		var count int
		if err := rows.Scan(&event, &count); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		counts[tracking.RunwayEvent(event)] = count
	}
	return counts, rows.Err()
}

// PingCount returns the total number of stored pings
func (s *PingStorage) PingCount() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM pings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pings: %w", err)
	}
	return count, nil
}

func scanPings(rows *sql.Rows) ([]*tracking.Ping, error) {
	var pings []*tracking.Ping
	for rows.Next() {
		var p tracking.Ping
		var ts int64
		var altitude sql.NullFloat64
		var event sql.NullString
		var onGround, inRegion int
		err := rows.Scan(
			&p.ID, &p.FlightID, &ts, &p.Lat, &p.Lon, &altitude,
			&p.GroundSpeed, &p.VerticalSpeed, &p.Heading, &p.Squawk, &onGround,
			&inRegion, &p.Transition, &event,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ping: %w", err)
		}
		p.Timestamp = time.Unix(ts, 0).UTC()
		p.OnGround = onGround != 0
		p.InRegion = inRegion != 0
		if altitude.Valid {
			alt := altitude.Float64
			p.Altitude = &alt
		}
		if event.Valid {
			p.Event = tracking.RunwayEvent(event.String)
		}
		pings = append(pings, &p)
	}
	return pings, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

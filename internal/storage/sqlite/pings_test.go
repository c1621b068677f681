package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runwayscope/runwayscope/internal/runway"
	"github.com/runwayscope/runwayscope/internal/tracking"
	"github.com/runwayscope/runwayscope/pkg/logger"
)

func newTestStorage(t *testing.T) *PingStorage {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	require.NoError(t, err)

	storage, err := NewPingStorage(filepath.Join(t.TempDir(), "test.db"), 1000, log)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage
}

func altFt(v float64) *float64 {
	return &v
}

func testPing(id int64, flightID string, ts time.Time) *tracking.Ping {
	return &tracking.Ping{
		ID:          id,
		FlightID:    flightID,
		Timestamp:   ts,
		Lat:         43.63,
		Lon:         1.37,
		Altitude:    altFt(1200),
		GroundSpeed: 140,
		Heading:     143,
	}
}

func TestInsertAndQueryPings(t *testing.T) {
	storage := newTestStorage(t)
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	require.NoError(t, storage.InsertPings([]*tracking.Ping{
		testPing(1, "f1", base),
		testPing(2, "f1", base.Add(10*time.Second)),
		testPing(3, "f2", base),
	}))

	maxID, err := storage.MaxPingID()
	require.NoError(t, err)
	assert.Equal(t, int64(3), maxID)

	pings, err := storage.PingsForFlight("f1")
	require.NoError(t, err)
	require.Len(t, pings, 2)
	assert.Equal(t, int64(1), pings[0].ID)
	assert.Equal(t, base, pings[0].Timestamp)
	require.NotNil(t, pings[0].Altitude)
	assert.Equal(t, 1200.0, *pings[0].Altitude)
}

func TestMaxPingIDEmptyTable(t *testing.T) {
	storage := newTestStorage(t)

	maxID, err := storage.MaxPingID()
	require.NoError(t, err)
	assert.Equal(t, int64(0), maxID)
}

func TestPingsForFlightBreaksTimestampTiesByID(t *testing.T) {
	storage := newTestStorage(t)
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	require.NoError(t, storage.InsertPings([]*tracking.Ping{
		testPing(7, "f1", base),
		testPing(2, "f1", base),
		testPing(5, "f1", base),
	}))

	pings, err := storage.PingsForFlight("f1")
	require.NoError(t, err)
	require.Len(t, pings, 3)
	assert.Equal(t, int64(2), pings[0].ID)
	assert.Equal(t, int64(5), pings[1].ID)
	assert.Equal(t, int64(7), pings[2].ID)
}

func TestNullAltitudeRoundTrip(t *testing.T) {
	storage := newTestStorage(t)
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	p := testPing(1, "f1", base)
	p.Altitude = nil
	require.NoError(t, storage.InsertPings([]*tracking.Ping{p}))

	pings, err := storage.PingsForFlight("f1")
	require.NoError(t, err)
	require.Len(t, pings, 1)
	assert.Nil(t, pings[0].Altitude)
}

func TestCandidateFlightIDs(t *testing.T) {
	storage := newTestStorage(t)
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	airborne := testPing(1, "airborne", base)
	grounded := testPing(2, "grounded", base)
	grounded.OnGround = true
	slow := testPing(3, "slow", base)
	slow.GroundSpeed = 5
	high := testPing(4, "high", base)
	high.Altitude = altFt(25000)
	noAlt := testPing(5, "no-alt", base)
	noAlt.Altitude = nil
	crossing := testPing(6, "crossing", base)
	crossing.Heading = 50

	require.NoError(t, storage.InsertPings([]*tracking.Ping{airborne, grounded, slow, high, noAlt, crossing}))

	filter := runway.CandidateFilter{
		MinGroundSpeedKts: 20,
		MaxAltitudeFt:     10000,
	}

	ids, err := storage.CandidateFlightIDs(filter)
	require.NoError(t, err)
	assert.Equal(t, []string{"airborne", "crossing", "no-alt"}, ids)

	// Heading filter keeps only flights aligned with the runway axis
	filter.RunwayAzimuthDeg = 142.8
	filter.HeadingToleranceDeg = 5

	ids, err = storage.CandidateFlightIDs(filter)
	require.NoError(t, err)
	assert.Equal(t, []string{"airborne", "no-alt"}, ids)
}

func TestCandidateHeadingFilterWrapsAxis(t *testing.T) {
	storage := newTestStorage(t)
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	// Reciprocal runway direction: 142.8 + 180 = 322.8
	reciprocal := testPing(1, "reciprocal", base)
	reciprocal.Heading = 322.8

	require.NoError(t, storage.InsertPings([]*tracking.Ping{reciprocal}))

	ids, err := storage.CandidateFlightIDs(runway.CandidateFilter{
		MinGroundSpeedKts:   20,
		MaxAltitudeFt:       10000,
		RunwayAzimuthDeg:    142.8,
		HeadingToleranceDeg: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"reciprocal"}, ids)
}

func TestUpdateEnrichmentAndEventCounts(t *testing.T) {
	storage := newTestStorage(t)
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	p1 := testPing(1, "f1", base)
	p2 := testPing(2, "f1", base.Add(10*time.Second))
	require.NoError(t, storage.InsertPings([]*tracking.Ping{p1, p2}))

	p1.InRegion = true
	p1.Transition = 1
	p2.Transition = -1
	p2.Event = tracking.EventLanding
	require.NoError(t, storage.UpdateEnrichment([]*tracking.Ping{p1, p2}))

	pings, err := storage.PingsForFlight("f1")
	require.NoError(t, err)
	assert.True(t, pings[0].InRegion)
	assert.Equal(t, int8(1), pings[0].Transition)
	assert.Equal(t, tracking.EventNone, pings[0].Event)
	assert.Equal(t, tracking.EventLanding, pings[1].Event)

	counts, err := storage.EventCounts()
	require.NoError(t, err)
	assert.Equal(t, map[tracking.RunwayEvent]int{tracking.EventLanding: 1}, counts)
}

func TestUpsertFlight(t *testing.T) {
	storage := newTestStorage(t)
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	require.NoError(t, storage.UpsertFlight(&tracking.FlightInfo{
		FlightID:  "f1",
		Callsign:  "AFR123",
		FirstSeen: base,
		LastSeen:  base,
	}))
	require.NoError(t, storage.UpsertFlight(&tracking.FlightInfo{
		FlightID:   "f1",
		Callsign:   "AFR123",
		OriginIATA: "ORY",
		FirstSeen:  base.Add(time.Minute),
		LastSeen:   base.Add(time.Minute),
	}))

	flights, err := storage.Flights()
	require.NoError(t, err)
	require.Len(t, flights, 1)
	assert.Equal(t, "AFR123", flights[0].Callsign)
	assert.Equal(t, "ORY", flights[0].OriginIATA)
	assert.Equal(t, base, flights[0].FirstSeen, "first_seen is kept from the first upsert")
	assert.Equal(t, base.Add(time.Minute), flights[0].LastSeen)
}

func TestEventRecordsJoinFlights(t *testing.T) {
	storage := newTestStorage(t)
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	p := testPing(1, "f1", base)
	require.NoError(t, storage.InsertPings([]*tracking.Ping{p}))
	require.NoError(t, storage.UpsertFlight(&tracking.FlightInfo{
		FlightID:   "f1",
		Callsign:   "AFR123",
		OriginIATA: "ORY",
		FirstSeen:  base,
		LastSeen:   base,
	}))

	p.Transition = 1
	p.Event = tracking.EventLanding
	require.NoError(t, storage.UpdateEnrichment([]*tracking.Ping{p}))

	records, err := storage.EventRecords()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, tracking.EventLanding, records[0].Ping.Event)
	assert.Equal(t, "AFR123", records[0].Flight.Callsign)
	assert.Equal(t, "ORY", records[0].Flight.OriginIATA)
}

func TestHourlyCounts(t *testing.T) {
	storage := newTestStorage(t)

	require.NoError(t, storage.InsertPings([]*tracking.Ping{
		testPing(1, "f1", time.Date(2026, 8, 29, 12, 5, 0, 0, time.UTC)),
		testPing(2, "f1", time.Date(2026, 8, 29, 12, 45, 0, 0, time.UTC)),
		testPing(3, "f2", time.Date(2026, 8, 29, 13, 1, 0, 0, time.UTC)),
	}))

	counts, err := storage.HourlyCounts()
	require.NoError(t, err)
	assert.Equal(t, []HourlyCount{
		{Hour: "2026-08-29 12", Count: 2},
		{Hour: "2026-08-29 13", Count: 1},
	}, counts)
}

func TestPingsLimit(t *testing.T) {
	storage := newTestStorage(t)
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	batch := make([]*tracking.Ping, 0, 10)
	for i := int64(1); i <= 10; i++ {
		batch = append(batch, testPing(i, "f1", base.Add(time.Duration(i)*time.Second)))
	}
	require.NoError(t, storage.InsertPings(batch))

	pings, err := storage.Pings("f1", 3)
	require.NoError(t, err)
	require.Len(t, pings, 3)
	// Newest first
	assert.Equal(t, int64(10), pings[0].ID)
}

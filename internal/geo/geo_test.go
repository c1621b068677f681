package geo

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDate() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func squareRing() Ring {
	return Ring{
		{Lon: -1, Lat: -1},
		{Lon: 1, Lat: -1},
		{Lon: 1, Lat: 1},
		{Lon: -1, Lat: 1},
	}
}

func TestRingValidate(t *testing.T) {
	assert.NoError(t, squareRing().Validate())

	assert.Error(t, Ring{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 1}}.Validate(), "too few vertices")
	assert.Error(t, Ring{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 1}, {Lon: math.NaN(), Lat: 0}}.Validate())
	assert.Error(t, Ring{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 1}, {Lon: 200, Lat: 0}}.Validate(), "out of range")
}

func TestRingContains(t *testing.T) {
	ring := squareRing()

	assert.True(t, ring.Contains(Point{Lon: 0, Lat: 0}))
	assert.True(t, ring.Contains(Point{Lon: 0.9, Lat: -0.9}))
	assert.False(t, ring.Contains(Point{Lon: 1.5, Lat: 0}))
	assert.False(t, ring.Contains(Point{Lon: 0, Lat: -2}))
	assert.False(t, ring.Contains(Point{Lon: math.NaN(), Lat: math.NaN()}))
}

func TestRingContainsConcave(t *testing.T) {
	// U shape: the notch between the arms is outside
	ring := Ring{
		{Lon: 0, Lat: 0},
		{Lon: 4, Lat: 0},
		{Lon: 4, Lat: 3},
		{Lon: 3, Lat: 3},
		{Lon: 3, Lat: 1},
		{Lon: 1, Lat: 1},
		{Lon: 1, Lat: 3},
		{Lon: 0, Lat: 3},
	}

	assert.True(t, ring.Contains(Point{Lon: 0.5, Lat: 2}), "left arm")
	assert.True(t, ring.Contains(Point{Lon: 3.5, Lat: 2}), "right arm")
	assert.False(t, ring.Contains(Point{Lon: 2, Lat: 2}), "notch")
	assert.True(t, ring.Contains(Point{Lon: 2, Lat: 0.5}), "base")
}

func TestHaversine(t *testing.T) {
	// One degree of latitude is about 111.2 km
	d := Haversine(43.0, 1.0, 44.0, 1.0)
	assert.InDelta(t, 111195, d, 200)

	assert.InDelta(t, 0, Haversine(43.6287, 1.3642, 43.6287, 1.3642), 0.001)
}

func TestBearing(t *testing.T) {
	assert.InDelta(t, 0, Bearing(43, 1, 44, 1), 0.1)
	assert.InDelta(t, 180, Bearing(44, 1, 43, 1), 0.1)
	assert.InDelta(t, 90, Bearing(0, 0, 0, 1), 0.1)
	assert.InDelta(t, 270, Bearing(0, 1, 0, 0), 0.1)
}

func TestDestinationPointRoundTrip(t *testing.T) {
	lat, lon := DestinationPoint(43.6287, 1.3642, 142.8, 10000)

	assert.InDelta(t, 10000, Haversine(43.6287, 1.3642, lat, lon), 1)
	assert.InDelta(t, 142.8, Bearing(43.6287, 1.3642, lat, lon), 0.1)
}

func TestBoundingBox(t *testing.T) {
	south, north, west, east := BoundingBox(43.6287, 1.3642, 15000)

	assert.Less(t, south, 43.6287)
	assert.Greater(t, north, 43.6287)
	assert.Less(t, west, 1.3642)
	assert.Greater(t, east, 1.3642)

	// Edges sit distanceM from the center
	assert.InDelta(t, 15000, Haversine(43.6287, 1.3642, north, 1.3642), 50)
	assert.InDelta(t, 15000, Haversine(43.6287, 1.3642, south, 1.3642), 50)
}

func TestRunwayZone(t *testing.T) {
	ring := RunwayZone(43.6287, 1.3642, 142.8, 15000, 400, 6)
	require.NoError(t, ring.Validate())

	// 2*segments+1 centerline points, mirrored on both sides
	assert.Len(t, ring, 2*(2*6+1))

	assert.True(t, ring.Contains(Point{Lon: 1.3642, Lat: 43.6287}), "station is inside")

	// A point along the axis but within the long extent is inside
	onAxisLat, onAxisLon := DestinationPoint(43.6287, 1.3642, 142.8, 10000)
	assert.True(t, ring.Contains(Point{Lon: onAxisLon, Lat: onAxisLat}))

	// Beyond the long extent is outside
	farLat, farLon := DestinationPoint(43.6287, 1.3642, 142.8, 20000)
	assert.False(t, ring.Contains(Point{Lon: farLon, Lat: farLat}))

	// Perpendicular to the axis beyond the short extent is outside
	sideLat, sideLon := DestinationPoint(43.6287, 1.3642, 142.8+90, 1000)
	assert.False(t, ring.Contains(Point{Lon: sideLon, Lat: sideLat}))
}

func TestMagneticDeclinationFallsBackToZero(t *testing.T) {
	// An absurd position must not panic; the model either resolves or the
	// fallback returns 0
	d := MagneticDeclination(89.9, 0, 0, testDate())
	assert.False(t, math.IsNaN(d))
}

func TestMagneticDeclinationToulouse(t *testing.T) {
	// Declination at Toulouse is around 1 degree east in the mid-2020s
	d := MagneticDeclination(43.6287, 1.3642, 499, testDate())
	assert.InDelta(t, 1.0, d, 2.0)
}

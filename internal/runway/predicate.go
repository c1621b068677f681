// Package runway derives discrete runway events (takeoff, landing,
// touch-n-go) from each flight's trajectory through a fixed runway-proximity
// region. Pings are annotated with a containment flag, then with the signed
// transition of that flag along the flight's timeline, and finally qualifying
// transitions are labeled with an event.
package runway

import (
	"math"
	"sync/atomic"

	"github.com/runwayscope/runwayscope/internal/geo"
)

// ZonePredicate decides whether a ping is inside the runway-proximity
// region: within the zone polygon and strictly below the altitude ceiling.
// It is immutable after construction and safe for concurrent use.
type ZonePredicate struct {
	ring      geo.Ring
	ceilingFt float64

	// Count of pings that defaulted to "not in region" because of missing
	// or degenerate telemetry. Diagnostic only.
	missing atomic.Int64
}

// NewZonePredicate validates the ring and returns a predicate. A ring that
// does not describe a usable polygon is a fatal configuration error.
func NewZonePredicate(ring geo.Ring, ceilingFt float64) (*ZonePredicate, error) {
	if err := ring.Validate(); err != nil {
		return nil, err
	}
	return &ZonePredicate{ring: ring, ceilingFt: ceilingFt}, nil
}

// Contains reports whether the point at the given altitude is inside the
// region. Any ambiguity resolves to false: a nil altitude, NaN coordinates
// or out-of-range values all yield "not in region", never an error.
func (z *ZonePredicate) Contains(p geo.Point, altitudeFt *float64) bool {
	if altitudeFt == nil || math.IsNaN(*altitudeFt) {
		z.missing.Add(1)
		return false
	}
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		z.missing.Add(1)
		return false
	}
	if *altitudeFt >= z.ceilingFt {
		return false
	}
	return z.ring.Contains(p)
}

// Ring returns the zone polygon
func (z *ZonePredicate) Ring() geo.Ring {
	return z.ring
}

// CeilingFt returns the altitude ceiling
func (z *ZonePredicate) CeilingFt() float64 {
	return z.ceilingFt
}

// MissingTelemetryCount returns how many containment tests defaulted to
// false because of missing or degenerate telemetry.
func (z *ZonePredicate) MissingTelemetryCount() int64 {
	return z.missing.Load()
}

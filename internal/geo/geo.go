// Package geo provides the geodesic and planar geometry primitives used for
// runway-zone construction and containment tests.
package geo

import (
	"fmt"
	"math"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

const (
	// EarthRadiusM is the mean earth radius in meters
	EarthRadiusM = 6371000.0
	// EarthRadiusNM is the mean earth radius in nautical miles
	EarthRadiusNM = 3440.065
	// MetersPerNM is the number of meters in one nautical mile
	MetersPerNM = 1852.0
)

// Point is a geographic coordinate (WGS84 degrees).
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Ring is a closed simple polygon given as an ordered ring of points.
// The closing edge from the last vertex back to the first is implicit.
type Ring []Point

// Validate checks that the ring describes a usable polygon. A ring with
// fewer than 3 vertices or non-finite coordinates is rejected.
func (r Ring) Validate() error {
	if len(r) < 3 {
		return fmt.Errorf("polygon ring has %d vertices, need at least 3", len(r))
	}
	for i, p := range r {
		if math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) || math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) {
			return fmt.Errorf("polygon vertex %d has non-finite coordinates (%f, %f)", i, p.Lon, p.Lat)
		}
		if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
			return fmt.Errorf("polygon vertex %d out of range (%f, %f)", i, p.Lon, p.Lat)
		}
	}
	return nil
}

// Contains reports whether the point lies inside the ring, using a ray cast
// along the positive longitude axis. The last vertex is assumed not to repeat
// the first, so the edge from r[len(r)-1] to r[0] is included in the test.
// NaN coordinates never satisfy the edge comparisons and resolve to false.
func (r Ring) Contains(p Point) bool {
	inside := false
	for i := 0; i < len(r); i++ {
		p0, p1 := r[i], r[(i+1)%len(r)]
		if (p0.Lat <= p.Lat && p.Lat < p1.Lat) || (p1.Lat <= p.Lat && p.Lat < p0.Lat) {
			x := p0.Lon + (p.Lat-p0.Lat)*(p1.Lon-p0.Lon)/(p1.Lat-p0.Lat)
			if x > p.Lon {
				inside = !inside
			}
		}
	}
	return inside
}

// Haversine returns the great-circle distance in meters between two points
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1 = lat1 * math.Pi / 180
	lon1 = lon1 * math.Pi / 180
	lat2 = lat2 * math.Pi / 180
	lon2 = lon2 * math.Pi / 180

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusM * c
}

// MetersToNM converts meters to nautical miles
func MetersToNM(meters float64) float64 {
	return meters / MetersPerNM
}

// Bearing calculates the initial bearing in degrees from point 1 to point 2
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	lat1 = lat1 * math.Pi / 180
	lon1 = lon1 * math.Pi / 180
	lat2 = lat2 * math.Pi / 180
	lon2 = lon2 * math.Pi / 180

	y := math.Sin(lon2-lon1) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(lon2-lon1)
	bearing := math.Atan2(y, x) * 180 / math.Pi

	// Normalize to 0-360
	return math.Mod(math.Mod(bearing, 360)+360, 360)
}

// DestinationPoint calculates the point reached by travelling the given
// distance in meters from (lat, lon) along the given bearing in degrees.
func DestinationPoint(lat, lon, bearingDeg, distanceM float64) (float64, float64) {
	lat = lat * math.Pi / 180
	lon = lon * math.Pi / 180
	bearing := bearingDeg * math.Pi / 180

	distRatio := distanceM / EarthRadiusM
	lat2 := math.Asin(math.Sin(lat)*math.Cos(distRatio) + math.Cos(lat)*math.Sin(distRatio)*math.Cos(bearing))
	lon2 := lon + math.Atan2(
		math.Sin(bearing)*math.Sin(distRatio)*math.Cos(lat),
		math.Cos(distRatio)-math.Sin(lat)*math.Sin(lat2),
	)

	return lat2 * 180 / math.Pi, lon2 * 180 / math.Pi
}

// BoundingBox returns the south, north, west and east limits of a square
// centered on (lat, lon) whose corners are distanceM meters away along the
// diagonals.
func BoundingBox(lat, lon, distanceM float64) (south, north, west, east float64) {
	nwLat, nwLon := DestinationPoint(lat, lon, 315, distanceM*math.Sqrt2)
	seLat, seLon := DestinationPoint(lat, lon, 135, distanceM*math.Sqrt2)
	return seLat, nwLat, nwLon, seLon
}

// RunwayZone builds the runway-proximity ring: a geodesic rectangle centered
// on (lat, lon), extending longAxisM meters along the runway azimuth in both
// directions and shortAxisM meters to each side. The long edges are densified
// into segments so the ring follows the geodesic rather than cutting corners
// over long distances.
func RunwayZone(lat, lon, azimuthDeg, longAxisM, shortAxisM float64, segments int) Ring {
	if segments < 1 {
		segments = 1
	}
	oppAzimuth := math.Mod(azimuthDeg+180, 360)

	// Walk the centerline from the far end opposite the azimuth to the far
	// end along it, offsetting perpendicular on one side, then walk back on
	// the other side.
	centerline := make([]Point, 0, 2*segments+1)
	for i := 0; i <= 2*segments; i++ {
		d := longAxisM * float64(i-segments) / float64(segments)
		var cLat, cLon float64
		if d < 0 {
			cLat, cLon = DestinationPoint(lat, lon, oppAzimuth, -d)
		} else {
			cLat, cLon = DestinationPoint(lat, lon, azimuthDeg, d)
		}
		centerline = append(centerline, Point{Lon: cLon, Lat: cLat})
	}

	ring := make(Ring, 0, 2*len(centerline))
	for _, c := range centerline {
		sLat, sLon := DestinationPoint(c.Lat, c.Lon, azimuthDeg+90, shortAxisM)
		ring = append(ring, Point{Lon: sLon, Lat: sLat})
	}
	for i := len(centerline) - 1; i >= 0; i-- {
		c := centerline[i]
		sLat, sLon := DestinationPoint(c.Lat, c.Lon, azimuthDeg-90, shortAxisM)
		ring = append(ring, Point{Lon: sLon, Lat: sLat})
	}
	return ring
}

// MagneticDeclination returns the magnetic declination in degrees (+East,
// -West) at the given position and time. Returns 0 if the model fails.
func MagneticDeclination(lat, lon, altFt float64, date time.Time) float64 {
	altM := altFt * 0.3048

	loc := egm96.NewLocationGeodetic(lat, lon, altM)
	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		return 0.0
	}

	return mag.D()
}

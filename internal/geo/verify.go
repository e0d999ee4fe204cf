// Package geo gates check-ins on physical presence: a reported location counts
// only when it falls inside an activity's geofence radius.
package geo

import (
	"math"

	dErrors "turnstile/pkg/domain-errors"
)

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

// Point is a coordinate pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Result reports whether the target lies within the fence and how far away it is.
type Result struct {
	WithinRadius   bool    `json:"within_radius"`
	DistanceMeters float64 `json:"distance_meters"`
}

// Verify computes the great-circle distance between origin and target and
// compares it to radiusMeters. Pure function, no I/O.
//
// The haversine formula over a spherical Earth is accurate well below the
// meter scale for the sub-kilometre fences this system uses, so there is no
// special-casing for the antimeridian or the poles.
func Verify(origin, target Point, radiusMeters float64) (Result, error) {
	if radiusMeters <= 0 {
		return Result{}, dErrors.New(dErrors.CodeInvalidInput, "radius must be positive")
	}

	d := Distance(origin, target)
	return Result{
		WithinRadius:   d <= radiusMeters,
		DistanceMeters: d,
	}, nil
}

// Distance returns the haversine great-circle distance in meters.
func Distance(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

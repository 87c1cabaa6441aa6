// Package geo computes great-circle distances between coordinates.
package geo

import (
	"math"

	"bloodlink/pkg/types"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// Distance returns the haversine distance between a and b. If either point is
// missing a coordinate or holds an out-of-range value the result is
// types.UnknownDistance.
func Distance(a, b *types.GeoPoint) types.Distance {
	if !a.Valid() || !b.Valid() {
		return types.UnknownDistance
	}

	return types.KnownDistance(Haversine(*a.Lat, *a.Lng, *b.Lat, *b.Lng))
}

// Haversine returns the distance in kilometers between two valid coordinates.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := deg2rad(lat2 - lat1)
	dLng := deg2rad(lng2 - lng1)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(lat1))*math.Cos(deg2rad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	// rounding can push h a hair above 1 for antipodal points
	h = math.Min(1, math.Max(0, h))

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

func deg2rad(deg float64) float64 {
	return deg * (math.Pi / 180)
}

package types

import (
	"fmt"
	"math"
)

// GeoPoint is a latitude/longitude pair where either coordinate may be
// missing. A point with a missing coordinate means "location unknown".
type GeoPoint struct {
	Lat *float64 `db:"latitude" json:"lat" form:"lat"`
	Lng *float64 `db:"longitude" json:"lng" form:"lng"`
}

func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{Lat: &lat, Lng: &lng}
}

// Valid reports whether both coordinates are present, finite and in range.
func (p *GeoPoint) Valid() bool {
	if p == nil || p.Lat == nil || p.Lng == nil {
		return false
	}

	lat, lng := *p.Lat, *p.Lng
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}

	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Distance is a great-circle distance in kilometers. The zero value is the
// unknown distance.
type Distance struct {
	Km    float64
	Known bool
}

var UnknownDistance = Distance{}

func KnownDistance(km float64) Distance {
	return Distance{Km: km, Known: true}
}

// Less orders known distances ascending and places unknown distances last.
func (d Distance) Less(o Distance) bool {
	switch {
	case d.Known && o.Known:
		return d.Km < o.Km
	case d.Known:
		return true
	default:
		return false
	}
}

// Within reports whether the distance is inside limitKm. Unknown distances
// are always within.
func (d Distance) Within(limitKm float64) bool {
	if !d.Known {
		return true
	}
	return d.Km <= limitKm
}

func (d Distance) String() string {
	if !d.Known {
		return "Nearby"
	}
	return fmt.Sprintf("%.1f km", d.Km)
}

package geo

import (
	"math"
	"testing"

	"bloodlink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestDistanceIdenticalPointsIsZero(t *testing.T) {
	points := []types.GeoPoint{
		types.NewGeoPoint(0, 0),
		types.NewGeoPoint(13.0776, 80.2917),
		types.NewGeoPoint(-89.9, 179.9),
		types.NewGeoPoint(90, -180),
	}

	for _, p := range points {
		d := Distance(&p, &p)
		require.True(t, d.Known)
		assert.Equal(t, 0.0, d.Km)
	}
}

func TestDistanceIsSymmetric(t *testing.T) {
	pairs := [][2]types.GeoPoint{
		{types.NewGeoPoint(13.0776, 80.2917), types.NewGeoPoint(12.6165, 79.9747)},
		{types.NewGeoPoint(51.5074, -0.1278), types.NewGeoPoint(40.7128, -74.0060)},
		{types.NewGeoPoint(-33.8688, 151.2093), types.NewGeoPoint(35.6762, 139.6503)},
		{types.NewGeoPoint(0, 0), types.NewGeoPoint(0, 180)},
	}

	for _, pair := range pairs {
		ab := Distance(&pair[0], &pair[1])
		ba := Distance(&pair[1], &pair[0])
		require.True(t, ab.Known)
		require.True(t, ba.Known)
		assert.InDelta(t, ab.Km, ba.Km, 1e-9)
	}
}

func TestDistanceKnownValues(t *testing.T) {
	chennai := types.NewGeoPoint(13.0776, 80.2917)
	chengalpattu := types.NewGeoPoint(12.6165, 79.9747)

	d := Distance(&chennai, &chengalpattu)
	require.True(t, d.Known)
	assert.InDelta(t, 61.72, d.Km, 0.05)

	london := types.NewGeoPoint(51.5074, -0.1278)
	paris := types.NewGeoPoint(48.8566, 2.3522)
	d = Distance(&london, &paris)
	require.True(t, d.Known)
	assert.InDelta(t, 343.5, d.Km, 1)

	// half the circumference
	a := types.NewGeoPoint(0, 0)
	b := types.NewGeoPoint(0, 180)
	d = Distance(&a, &b)
	require.True(t, d.Known)
	assert.InDelta(t, math.Pi*EarthRadiusKm, d.Km, 1e-6)
}

func TestDistanceUnknown(t *testing.T) {
	valid := types.NewGeoPoint(13.0776, 80.2917)

	cases := map[string]*types.GeoPoint{
		"nil point":        nil,
		"empty point":      {},
		"missing lat":      {Lng: ptr(80.2917)},
		"missing lng":      {Lat: ptr(13.0776)},
		"lat out of range": {Lat: ptr(91), Lng: ptr(10)},
		"lng out of range": {Lat: ptr(10), Lng: ptr(-180.5)},
		"nan lat":          {Lat: ptr(math.NaN()), Lng: ptr(10)},
		"inf lng":          {Lat: ptr(10), Lng: ptr(math.Inf(1))},
	}

	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			d := Distance(&valid, p)
			assert.Equal(t, types.UnknownDistance, d)
			assert.False(t, math.IsNaN(d.Km))

			d = Distance(p, &valid)
			assert.Equal(t, types.UnknownDistance, d)
		})
	}
}

func TestDistanceZeroCoordinatesAreKnown(t *testing.T) {
	origin := types.NewGeoPoint(0, 0)
	other := types.NewGeoPoint(0, 1)

	d := Distance(&origin, &other)
	require.True(t, d.Known)
	assert.InDelta(t, 111.19, d.Km, 0.01)
}

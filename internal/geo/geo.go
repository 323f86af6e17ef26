package geo

import (
	"math"
	"strconv"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// Haversine returns the great-circle distance in km between two points.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

func toRad(degrees float64) float64 { return degrees * (math.Pi / 180) }

// QuantizeDecimals controls discovery cache-key granularity. 3 decimals is
// roughly 110 m, enough to collapse near-identical queries onto one key.
const QuantizeDecimals = 3

// Quantize rounds a coordinate for cache-key use.
func Quantize(v float64) string {
	scale := math.Pow10(QuantizeDecimals)
	return strconv.FormatFloat(math.Round(v*scale)/scale, 'f', -1, 64)
}

type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// kmPerDegreeLat is close enough for a prefilter box; the exact haversine
// cut happens afterwards.
const kmPerDegreeLat = 111.045

// Box over-approximates the circle of radiusKm around (lat, lng).
func Box(lat, lng, radiusKm float64) BoundingBox {
	dLat := radiusKm / kmPerDegreeLat
	cosLat := math.Cos(toRad(lat))
	if cosLat < 0.01 {
		cosLat = 0.01 // near the poles every longitude qualifies
	}
	dLng := radiusKm / (kmPerDegreeLat * cosLat)
	return BoundingBox{
		MinLat: math.Max(lat-dLat, -90),
		MaxLat: math.Min(lat+dLat, 90),
		MinLng: math.Max(lng-dLng, -180),
		MaxLng: math.Min(lng+dLng, 180),
	}
}

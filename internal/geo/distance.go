// Package geo provides great-circle distance calculation between
// coordinate pairs. Pure and deterministic; no external lookups.
package geo

import (
	"math"

	"github.com/eventradar/notify-engine/internal/models"
)

// Mean Earth radius in kilometers. Haversine over a sphere of this radius
// is accurate to well under 0.5%, which is plenty for radius matching.
const earthRadiusKm = 6371.0

// DistanceKm returns the Haversine distance in kilometers between two
// points given in degrees.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// Between returns the distance between two optional coordinate pairs.
// ok is false when either pair is absent; callers must treat that as
// "cannot compute a geographic match" and fall back to city-name equality.
func Between(a, b *models.Coordinates) (km float64, ok bool) {
	if a == nil || b == nil {
		return 0, false
	}
	return DistanceKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude), true
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
